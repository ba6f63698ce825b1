package ecs

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.uber.org/multierr"
)

// DefaultMaxSteps is the default maximum number of commands applied per flush.
const DefaultMaxSteps = 1 << 20

// DefaultMaxCascadeDepth is the default cascade depth limit.
//
// Depth 0 is work scheduled by a caller's write. A mirror write schedules
// depth 1 work on the peer, and an evicted single mirror can reach depth 2.
// Anything deeper means hooks are chaining beyond direct two-entity edges.
const DefaultMaxCascadeDepth = 4

// ComponentID names a component slot, e.g. "Family/ChildOf".
type ComponentID string

// Hooks are invoked synchronously when a component slot changes.
//
// Hooks must not mutate other entities directly; they schedule Commands.
// OnReplace and OnRemove receive the value being replaced or removed.
type Hooks struct {
	OnInsert  func(w *World, e Entity)
	OnReplace func(w *World, e Entity, old any)
	OnRemove  func(w *World, e Entity, old any)
}

// Command is a unit of deferred work applied at the next flush.
type Command interface {
	Apply(ctx context.Context, w *World) error
}

type componentStore struct {
	hooks Hooks
	data  map[Entity]any
}

type entityMeta struct {
	generation uint32
	alive      bool
}

// World is the entity-component store.
//
// INVARIANTS:
//   - A component value is only reachable through an alive entity
//   - Hooks fire for every attach, replace and detach, including Despawn
//   - Commands are applied in scheduling order, never inside the write
//     that scheduled them
type World struct {
	entities   []entityMeta
	free       []uint32
	components map[ComponentID]*componentStore
	resources  map[string]any

	queue  *commandQueue
	clock  *Clock
	tokens TokenGenerator
	logger *slog.Logger

	maxSteps int
	maxDepth int

	// Flush state. depth is the cascade depth of the command being applied,
	// or -1 outside of a flush.
	flushing   bool
	depth      int
	flushToken string
}

// WorldOption allows configuration of world parameters.
type WorldOption func(*World)

// WithMaxSteps sets the maximum commands applied per flush.
func WithMaxSteps(maxSteps int) WorldOption {
	return func(w *World) {
		w.maxSteps = maxSteps
	}
}

// WithMaxCascadeDepth sets the cascade depth limit.
func WithMaxCascadeDepth(depth int) WorldOption {
	return func(w *World) {
		w.maxDepth = depth
	}
}

// WithTokenGenerator overrides the flush token generator.
func WithTokenGenerator(gen TokenGenerator) WorldOption {
	return func(w *World) {
		w.tokens = gen
	}
}

// WithClock overrides the logical clock.
// Used to resume sequence numbers after an existing event log.
func WithClock(c *Clock) WorldOption {
	return func(w *World) {
		w.clock = c
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) WorldOption {
	return func(w *World) {
		w.logger = logger
	}
}

// NewWorld creates an empty world.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		components: make(map[ComponentID]*componentStore),
		resources:  make(map[string]any),
		queue:      newCommandQueue(),
		clock:      NewClock(),
		tokens:     UUIDv7Generator{},
		logger:     slog.Default(),
		maxSteps:   DefaultMaxSteps,
		maxDepth:   DefaultMaxCascadeDepth,
		depth:      -1,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Spawn allocates a new entity. Released slots are reused with a bumped
// generation.
func (w *World) Spawn() Entity {
	if n := len(w.free); n > 0 {
		idx := w.free[n-1]
		w.free = w.free[:n-1]
		meta := &w.entities[idx]
		meta.alive = true
		return Entity{Index: idx, Generation: meta.generation}
	}

	idx := uint32(len(w.entities))
	w.entities = append(w.entities, entityMeta{alive: true})
	return Entity{Index: idx}
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	if int(e.Index) >= len(w.entities) {
		return false
	}
	meta := w.entities[e.Index]
	return meta.alive && meta.generation == e.Generation
}

// Entities returns all live entities in index order.
func (w *World) Entities() []Entity {
	var out []Entity
	for idx, meta := range w.entities {
		if meta.alive {
			out = append(out, Entity{Index: uint32(idx), Generation: meta.generation})
		}
	}
	return out
}

// Despawn removes every component of e (firing remove hooks in component id
// order) and releases the id. Despawning a dead entity is a no-op.
func (w *World) Despawn(e Entity) {
	if !w.Alive(e) {
		return
	}

	ids := make([]ComponentID, 0, len(w.components))
	for id, store := range w.components {
		if _, ok := store.data[e]; ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	for _, id := range ids {
		_ = w.Remove(e, id)
	}

	meta := &w.entities[e.Index]
	meta.alive = false
	meta.generation++
	w.free = append(w.free, e.Index)
}

// RegisterComponent declares a component slot and its hooks.
// Registering the same id twice is an error.
func (w *World) RegisterComponent(id ComponentID, hooks Hooks) error {
	if _, ok := w.components[id]; ok {
		return fmt.Errorf("component %q already registered", id)
	}
	w.components[id] = &componentStore{
		hooks: hooks,
		data:  make(map[Entity]any),
	}
	return nil
}

// Registered reports whether a component id has been registered.
func (w *World) Registered(id ComponentID) bool {
	_, ok := w.components[id]
	return ok
}

// Get returns the component value stored on e, if any.
func (w *World) Get(e Entity, id ComponentID) (any, bool) {
	store, ok := w.components[id]
	if !ok || !w.Alive(e) {
		return nil, false
	}
	v, ok := store.data[e]
	return v, ok
}

// Has reports whether e carries component id.
func (w *World) Has(e Entity, id ComponentID) bool {
	_, ok := w.Get(e, id)
	return ok
}

// Insert attaches value to e, replacing any previous value.
//
// On replace, OnReplace fires with the old value before the new value is
// stored; OnInsert fires after the new value is stored.
func (w *World) Insert(e Entity, id ComponentID, value any) error {
	store, ok := w.components[id]
	if !ok {
		return fmt.Errorf("insert %s on %s: %w", id, e, ErrUnknownComponent)
	}
	if !w.Alive(e) {
		return fmt.Errorf("insert %s on %s: %w", id, e, ErrEntityNotFound)
	}

	if old, exists := store.data[e]; exists && store.hooks.OnReplace != nil {
		store.hooks.OnReplace(w, e, old)
	}

	store.data[e] = value

	if store.hooks.OnInsert != nil {
		store.hooks.OnInsert(w, e)
	}

	return nil
}

// Remove detaches component id from e. Removing an absent component is a
// no-op. OnRemove fires with the old value before it is deleted.
func (w *World) Remove(e Entity, id ComponentID) error {
	store, ok := w.components[id]
	if !ok {
		return fmt.Errorf("remove %s on %s: %w", id, e, ErrUnknownComponent)
	}
	if !w.Alive(e) {
		return nil
	}

	old, exists := store.data[e]
	if !exists {
		return nil
	}

	if store.hooks.OnRemove != nil {
		store.hooks.OnRemove(w, e, old)
	}

	delete(store.data, e)
	return nil
}

// Each calls fn for every entity carrying component id, in entity order.
func (w *World) Each(id ComponentID, fn func(e Entity, value any)) {
	store, ok := w.components[id]
	if !ok {
		return
	}
	keys := make([]Entity, 0, len(store.data))
	for e := range store.data {
		keys = append(keys, e)
	}
	slices.SortFunc(keys, Compare)
	for _, e := range keys {
		fn(e, store.data[e])
	}
}

// SetResource stores a named resource, replacing any previous value.
func (w *World) SetResource(name string, value any) {
	w.resources[name] = value
}

// Resource returns a named resource.
func (w *World) Resource(name string) (any, bool) {
	v, ok := w.resources[name]
	return v, ok
}

// Queue schedules a command for the next flush.
//
// Commands queued while another command is applying inherit its cascade
// depth plus one; commands queued outside a flush start at depth 0.
func (w *World) Queue(cmd Command) {
	depth := 0
	if w.flushing {
		depth = w.depth + 1
	}
	w.queue.Enqueue(queued{cmd: cmd, depth: depth})
}

// Pending returns the number of commands waiting for the next flush.
func (w *World) Pending() int {
	return w.queue.Len()
}

// Clock returns the world's logical clock.
func (w *World) Clock() *Clock {
	return w.clock
}

// FlushToken returns the token of the flush in progress, or "" outside a flush.
func (w *World) FlushToken() string {
	return w.flushToken
}

// Logger returns the world's logger.
func (w *World) Logger() *slog.Logger {
	return w.logger
}

// Flush applies every pending command, including commands scheduled while
// flushing, in FIFO order.
//
// ERROR HANDLING: a failing command is logged and the flush continues
// ("log and continue"); all failures are returned together. A guard
// violation drops the offending work. Context cancellation stops the flush
// and leaves the unapplied commands queued for the next flush.
func (w *World) Flush(ctx context.Context) error {
	if w.flushing {
		return ErrFlushInProgress
	}

	w.flushing = true
	w.flushToken = w.tokens.Generate()
	token := w.flushToken
	defer func() {
		w.flushing = false
		w.depth = -1
		w.flushToken = ""
	}()

	quota := NewQuotaEnforcer(w.maxSteps)
	var errs error
	applied := 0

	w.logger.Debug("flush starting", "flush_token", token, "pending", w.queue.Len())

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("flush interrupted", "flush_token", token, "pending", w.queue.Len(), "error", err)
			return multierr.Append(errs, err)
		}

		entry, ok := w.queue.TryDequeue()
		if !ok {
			break
		}

		if err := quota.Check(token); err != nil {
			dropped := w.queue.Clear() + 1
			w.logger.Error("max steps quota exceeded",
				"flush_token", token,
				"steps", quota.Current(),
				"limit", w.maxSteps,
				"dropped", dropped,
				"event", "quota_exceeded",
			)
			errs = multierr.Append(errs, err)
			break
		}

		if entry.depth > w.maxDepth {
			cerr := NewCascadeError(token, entry.cmd, entry.depth, w.maxDepth)
			w.logger.Error("cascade depth exceeded",
				"flush_token", token,
				"command", fmt.Sprint(entry.cmd),
				"depth", entry.depth,
				"limit", w.maxDepth,
				"event", "cascade_depth",
			)
			errs = multierr.Append(errs, cerr)
			continue
		}

		w.depth = entry.depth
		seq := w.clock.Next()
		if err := entry.cmd.Apply(ctx, w); err != nil {
			w.logger.Error("command failed",
				"flush_token", token,
				"command", fmt.Sprint(entry.cmd),
				"seq", seq,
				"error", err,
			)
			errs = multierr.Append(errs, fmt.Errorf("apply %v: %w", entry.cmd, err))
			continue
		}
		applied++
	}

	w.logger.Debug("flush finished", "flush_token", token, "applied", applied)
	return errs
}
