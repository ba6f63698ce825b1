// Package ecs implements the in-memory entity-component store that relation
// records live in.
//
// The store is deliberately small. It provides exactly what the relation
// synchroniser needs from a host:
//
//   - Entity identifiers with generations, so a despawned id never resolves again
//   - Typed component slots with insert, replace and remove hooks
//   - A deferred command queue that is only drained by an explicit Flush
//   - Named resources (used for per-relation event channels)
//
// ARCHITECTURE:
//
// Single-Writer Flush:
// Hooks run synchronously inside Insert/Remove but may not touch other
// entities. Anything they want to change elsewhere is queued as a Command.
// Flush drains the queue in FIFO order on the calling goroutine, so:
//   - Commands apply in the order they were scheduled
//   - Commands queued during a flush run in the same flush
//   - Every applied command is stamped with the logical clock
//
// Termination Guards:
// A flush is bounded by a step quota (linear explosions) and a cascade depth
// guard (commands scheduled by commands scheduled by commands...). Both are
// reported as RuntimeError values and logged; neither aborts the rest of the
// flush.
//
// The store is not safe for concurrent mutation. Callers serialise writes;
// only Queue and the queue length are guarded by a mutex.
package ecs
