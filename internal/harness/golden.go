package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/relsync/internal/ir"
)

// Snapshot captures what a scenario produced: the events it emitted and
// the records left standing. It serialises to canonical JSON so golden
// files are byte-stable.
type Snapshot struct {
	ScenarioName string                         `json:"scenario_name"`
	Events       []EventRecord                  `json:"events"`
	State        map[string]map[string][]string `json:"state"`
}

// NewSnapshot builds a snapshot from a result.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{ScenarioName: name, Events: result.Events, State: result.State}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s Snapshot) toCanonicalMap() map[string]any {
	events := make([]any, len(s.Events))
	for i, ev := range s.Events {
		events[i] = map[string]any{
			"seq":         ev.Seq,
			"flush_token": ev.FlushToken,
			"relation":    ev.Relation,
			"kind":        ev.Kind,
			"from":        ev.From,
			"to":          ev.To,
		}
	}

	state := make(map[string]any, len(s.State))
	for side, records := range s.State {
		recs := make(map[string]any, len(records))
		for entity, peers := range records {
			recs[entity] = peers
		}
		state[side] = recs
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"events":        events,
		"state":         state,
	}
}

// MarshalCanonical serialises the snapshot as canonical JSON.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's snapshot against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
