package ecs

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts applied commands in one flush and enforces a limit.
//
// Each flush gets a fresh enforcer. The quota catches linear explosions of
// follow-on work, which the cascade depth guard cannot see: a long chain of
// depth-1 commands never trips the depth guard but does trip the quota.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates against the limit.
// Returns StepsExceededError once the limit is passed.
func (q *QuotaEnforcer) Check(flushToken string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			FlushToken: flushToken,
			Steps:      q.current,
			Limit:      q.maxSteps,
		}
	}
	return nil
}

// Reset resets the step counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a flush exceeds the step quota.
// The remaining queued commands of that flush are dropped.
type StepsExceededError struct {
	FlushToken string
	Steps      int
	Limit      int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("flush %s exceeded max steps quota: %d steps > %d limit",
		e.FlushToken, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
