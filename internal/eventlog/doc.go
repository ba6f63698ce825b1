// Package eventlog is a SQLite-backed journal of relation change events.
//
// A Store implements event.Recorder, so it can be attached to any relation's
// channel with event.WithRecorder. Each event is stored with the flush token
// and logical sequence number of the mirror command that produced it.
//
// # Determinism
//
//   - Ordering uses seq (logical clock), never wall-clock time
//   - Every query ends in ORDER BY seq ASC, id ASC
//   - (flush_token, seq) is unique; re-recording the same event is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - Schema versioned through PRAGMA user_version
package eventlog
