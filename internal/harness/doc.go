// Package harness runs conformance scenarios against the relation
// synchroniser.
//
// A scenario declares relations in CUE, spawns named entities, performs a
// list of writes and flushes, then asserts on the resulting records and the
// change events the flushes emitted.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: family_reparent
//	description: "Moving a child to a new parent updates both parents"
//	relations: relations.cue
//	entities: [alice, bob, carol]
//	steps:
//	  - op: insert
//	    entity: carol
//	    side: ChildOf
//	    peers: [alice]
//	  - op: flush
//	assertions:
//	  - type: related
//	    entity: alice
//	    side: ParentOf
//	    peers: [carol]
//	  - type: consistent
//
// The relations path is resolved relative to the scenario file. Small
// scenarios may inline the CUE source under declarations instead.
//
// # Step Operations
//
//   - spawn: creates a new named entity
//   - insert: replaces the entity's record for side with peers
//   - add: pushes peers onto the entity's record, creating it if needed
//   - discard: drops peers from the entity's record
//   - remove: deletes the entity's record for side
//   - despawn: destroys the entity and every record it holds
//   - flush: applies all pending mirror work
//
// A step may set expect_error to a substring the step's error must contain.
//
// # Assertion Types
//
//   - related: the entity's record for side holds exactly peers, in order
//   - absent: the entity holds no record for side
//   - events: the relation emitted exactly these events, in order
//   - event_count: the relation emitted count events
//   - consistent: every relation satisfies the mirror invariant
//
// # Deterministic Testing
//
// Every scenario runs in a fresh world with numbered flush tokens
// ("flush-1", "flush-2", ...) and a logical clock starting at zero, so
// event sequence numbers and golden snapshots are identical across runs.
package harness
