package ecs

import (
	"errors"
	"fmt"
)

// ErrEntityNotFound is returned when a caller writes to a despawned or
// never-spawned entity.
var ErrEntityNotFound = errors.New("entity not found")

// ErrUnknownComponent is returned when a component id was never registered.
var ErrUnknownComponent = errors.New("unknown component")

// ErrFlushInProgress is returned when Flush is called from inside a command.
var ErrFlushInProgress = errors.New("flush already in progress")

// RuntimeError represents a guard violation detected while flushing.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// FlushToken identifies the affected flush.
	FlushToken string

	// Command is the String() of the command involved, if any.
	Command string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates the flush exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeCascadeDepth indicates a command was scheduled too many hops
	// away from the caller's original write.
	ErrCodeCascadeDepth RuntimeErrorCode = "CASCADE_DEPTH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.FlushToken != "" && e.Command != "" {
		return fmt.Sprintf("%s: %s (flush=%s, command=%s)", e.Code, e.Message, e.FlushToken, e.Command)
	}
	if e.FlushToken != "" {
		return fmt.Sprintf("%s: %s (flush=%s)", e.Code, e.Message, e.FlushToken)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCascadeError returns true if the error is a cascade depth error.
func IsCascadeError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCascadeDepth
	}
	return false
}

// IsQuotaError returns true if the error is a quota error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// NewCascadeError creates a RuntimeError for a command past the depth limit.
func NewCascadeError(flushToken string, cmd Command, depth, maxDepth int) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeCascadeDepth,
		Message:    fmt.Sprintf("command scheduled at cascade depth %d (limit %d)", depth, maxDepth),
		FlushToken: flushToken,
		Command:    fmt.Sprint(cmd),
		Details: map[string]string{
			"depth":     fmt.Sprintf("%d", depth),
			"max_depth": fmt.Sprintf("%d", maxDepth),
		},
	}
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(flushToken string, steps, maxSteps int) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeQuotaExceeded,
		Message:    fmt.Sprintf("flush exceeded max steps (%d >= %d)", steps, maxSteps),
		FlushToken: flushToken,
		Details: map[string]string{
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
	}
}
