package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionContext provides the live checks assertions need beyond the
// result snapshot.
type AssertionContext struct {
	// Sides lists every declared side name.
	Sides []string

	// Consistent checks the mirror invariant on the live world.
	Consistent func() error
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Events   []EventRecord // Emitted events for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nEmitted events:\n")
		for _, ev := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s %s(%s, %s) flush=%s\n", ev.Seq, ev.Relation, ev.Kind, ev.From, ev.To, ev.FlushToken)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns one message per
// failure. An empty slice means all assertions passed.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertRelated, AssertAbsent:
		if actx != nil && !slices.Contains(actx.Sides, a.Side) {
			return fmt.Errorf("unknown side %q", a.Side)
		}
		if a.Type == AssertRelated {
			return assertRelated(result, a)
		}
		return assertAbsent(result, a)
	case AssertEvents:
		return assertEvents(result, a)
	case AssertEventCount:
		return assertEventCount(result, a)
	case AssertConsistent:
		if actx == nil || actx.Consistent == nil {
			return fmt.Errorf("consistent assertion requires a live world")
		}
		return assertConsistent(result, actx.Consistent)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertRelated checks that the entity's record holds exactly the expected
// peers, in container iteration order.
func assertRelated(result *Result, a Assertion) error {
	peers, ok := result.State[a.Side][a.Entity]
	if !ok {
		return &AssertionError{
			Type:     AssertRelated,
			Expected: fmt.Sprintf("%s holds %s%v", a.Entity, a.Side, a.Peers),
			Actual:   fmt.Sprintf("%s has no %s record", a.Entity, a.Side),
			Events:   result.Events,
		}
	}
	if !slices.Equal(peers, a.Peers) {
		return &AssertionError{
			Type:     AssertRelated,
			Expected: fmt.Sprintf("%s holds %s%v", a.Entity, a.Side, a.Peers),
			Actual:   fmt.Sprintf("%s holds %s%v", a.Entity, a.Side, peers),
			Events:   result.Events,
		}
	}
	return nil
}

// assertAbsent checks that the entity holds no record for the side.
func assertAbsent(result *Result, a Assertion) error {
	if peers, ok := result.State[a.Side][a.Entity]; ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("%s has no %s record", a.Entity, a.Side),
			Actual:   fmt.Sprintf("%s holds %s%v", a.Entity, a.Side, peers),
			Events:   result.Events,
		}
	}
	return nil
}

// assertEvents checks the relation's full event sequence.
func assertEvents(result *Result, a Assertion) error {
	actual := result.EventsFor(a.Relation)
	if len(actual) != len(a.Events) {
		return &AssertionError{
			Type:     AssertEvents,
			Expected: fmt.Sprintf("%d %s events %s", len(a.Events), a.Relation, formatExpected(a.Events)),
			Actual:   fmt.Sprintf("%d events %s", len(actual), formatActual(actual)),
			Events:   result.Events,
		}
	}
	for i, want := range a.Events {
		got := actual[i]
		if got.Kind != want.Kind || got.From != want.From || got.To != want.To {
			return &AssertionError{
				Type:     AssertEvents,
				Expected: fmt.Sprintf("event %d is %s(%s, %s)", i, want.Kind, want.From, want.To),
				Actual:   fmt.Sprintf("event %d is %s(%s, %s)", i, got.Kind, got.From, got.To),
				Events:   result.Events,
			}
		}
	}
	return nil
}

// assertEventCount checks how many events the relation emitted.
func assertEventCount(result *Result, a Assertion) error {
	if n := len(result.EventsFor(a.Relation)); n != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.Relation),
			Actual:   fmt.Sprintf("%d events", n),
			Events:   result.Events,
		}
	}
	return nil
}

func assertConsistent(result *Result, check func() error) error {
	if err := check(); err != nil {
		return &AssertionError{
			Type:     AssertConsistent,
			Expected: "every record mirrored by its peers",
			Actual:   err.Error(),
			Events:   result.Events,
		}
	}
	return nil
}

func formatExpected(events []ExpectedEvent) string {
	parts := make([]string, len(events))
	for i, ev := range events {
		parts[i] = fmt.Sprintf("%s(%s, %s)", ev.Kind, ev.From, ev.To)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatActual(events []EventRecord) string {
	parts := make([]string, len(events))
	for i, ev := range events {
		parts[i] = fmt.Sprintf("%s(%s, %s)", ev.Kind, ev.From, ev.To)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
