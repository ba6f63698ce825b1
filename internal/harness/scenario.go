package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Relations is the path of a CUE declaration file. Relative paths are
	// resolved against the scenario file's directory by LoadScenario.
	Relations string `yaml:"relations,omitempty"`

	// Declarations is inline CUE source, used instead of Relations.
	Declarations string `yaml:"declarations,omitempty"`

	// Entities are spawned in order before the first step.
	Entities []string `yaml:"entities"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one write, flush or lifecycle operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Entity names the acting entity (all ops except flush).
	Entity string `yaml:"entity,omitempty"`

	// Side names the relatable side written (insert, add, discard, remove).
	Side string `yaml:"side,omitempty"`

	// Peers name the entities written into or dropped from the record.
	Peers []string `yaml:"peers,omitempty"`

	// ExpectError, if set, requires the step to fail with an error
	// containing this substring.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates final records or emitted events.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Entity and Side select a record (related, absent).
	Entity string `yaml:"entity,omitempty"`
	Side   string `yaml:"side,omitempty"`

	// Peers is the exact expected record content (related).
	Peers []string `yaml:"peers,omitempty"`

	// Relation selects the event channel (events, event_count).
	Relation string `yaml:"relation,omitempty"`

	// Events is the exact expected event sequence (events).
	Events []ExpectedEvent `yaml:"events,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`
}

// ExpectedEvent is one expected change event, by entity name.
type ExpectedEvent struct {
	Kind string `yaml:"kind"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Step operations.
const (
	OpSpawn   = "spawn"
	OpInsert  = "insert"
	OpAdd     = "add"
	OpDiscard = "discard"
	OpRemove  = "remove"
	OpDespawn = "despawn"
	OpFlush   = "flush"
)

// Assertion type constants.
const (
	AssertRelated    = "related"
	AssertAbsent     = "absent"
	AssertEvents     = "events"
	AssertEventCount = "event_count"
	AssertConsistent = "consistent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Relations != "" && !filepath.IsAbs(scenario.Relations) {
		scenario.Relations = filepath.Join(filepath.Dir(path), scenario.Relations)
	}
	if scenario.Relations != "" {
		if _, err := os.Stat(scenario.Relations); err != nil {
			return nil, fmt.Errorf("invalid scenario: relations file not found: %s", scenario.Relations)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Relations == "" && s.Declarations == "":
		return fmt.Errorf("one of relations or declarations is required")
	case s.Relations != "" && s.Declarations != "":
		return fmt.Errorf("relations and declarations are mutually exclusive")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	known := make(map[string]bool)
	for _, name := range s.Entities {
		if name == "" {
			return fmt.Errorf("entities: empty entity name")
		}
		if known[name] {
			return fmt.Errorf("entities: duplicate entity %q", name)
		}
		known[name] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step, known); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks one step. Spawned names are added to known so later
// steps may refer to them.
func validateStep(index int, step *Step, known map[string]bool) error {
	switch step.Op {
	case OpFlush:
		if step.Entity != "" || step.Side != "" || len(step.Peers) > 0 {
			return fmt.Errorf("steps[%d]: flush takes no entity, side or peers", index)
		}
		return nil
	case OpSpawn:
		if step.Entity == "" {
			return fmt.Errorf("steps[%d]: entity is required for spawn", index)
		}
		if known[step.Entity] {
			return fmt.Errorf("steps[%d]: entity %q already exists", index, step.Entity)
		}
		known[step.Entity] = true
		return nil
	case OpDespawn:
		if step.Entity == "" {
			return fmt.Errorf("steps[%d]: entity is required for despawn", index)
		}
	case OpInsert, OpAdd, OpDiscard:
		if step.Entity == "" || step.Side == "" {
			return fmt.Errorf("steps[%d]: entity and side are required for %s", index, step.Op)
		}
	case OpRemove:
		if step.Entity == "" || step.Side == "" {
			return fmt.Errorf("steps[%d]: entity and side are required for remove", index)
		}
		if len(step.Peers) > 0 {
			return fmt.Errorf("steps[%d]: remove takes no peers", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if !known[step.Entity] {
		return fmt.Errorf("steps[%d]: unknown entity %q", index, step.Entity)
	}
	for _, peer := range step.Peers {
		if !known[peer] {
			return fmt.Errorf("steps[%d]: unknown peer %q", index, peer)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRelated:
		if a.Entity == "" || a.Side == "" {
			return fmt.Errorf("assertions[%d]: entity and side are required for related", index)
		}
		if len(a.Peers) == 0 {
			return fmt.Errorf("assertions[%d]: peers are required for related (use absent for no record)", index)
		}
	case AssertAbsent:
		if a.Entity == "" || a.Side == "" {
			return fmt.Errorf("assertions[%d]: entity and side are required for absent", index)
		}
	case AssertEvents:
		if a.Relation == "" {
			return fmt.Errorf("assertions[%d]: relation is required for events", index)
		}
		for j, ev := range a.Events {
			if ev.Kind == "" || ev.From == "" || ev.To == "" {
				return fmt.Errorf("assertions[%d].events[%d]: kind, from and to are required", index, j)
			}
		}
	case AssertEventCount:
		if a.Relation == "" {
			return fmt.Errorf("assertions[%d]: relation is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertConsistent:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
