// Package event carries the change events the relation synchroniser emits.
//
// Each relation has at most one append-only Channel, stored as a world
// resource under its relation name. Events sent for a relation without a
// registered channel are dropped silently.
package event

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/relsync/internal/ecs"
)

// Kind is the direction of a mirror change.
type Kind uint8

const (
	// Added means the synchroniser installed the mirror of From -> To.
	Added Kind = iota + 1
	// Removed means the synchroniser tore down the mirror of From -> To.
	Removed
)

// String returns "Added" or "Removed".
func (k Kind) String() string {
	switch k {
	case Added:
		return "Added"
	case Removed:
		return "Removed"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "Added":
		return Added, nil
	case "Removed":
		return Removed, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// Event is one change to relation R's mirror graph.
type Event[R any] struct {
	Kind Kind
	From ecs.Entity
	To   ecs.Entity
}

// String formats the event as "Added(0v0, 1v0)".
func (e Event[R]) String() string {
	return fmt.Sprintf("%s(%s, %s)", e.Kind, e.From, e.To)
}

// Record is the untyped, persisted form of an event.
type Record struct {
	Seq        int64      `json:"seq"`
	FlushToken string     `json:"flush_token"`
	Relation   string     `json:"relation"`
	Kind       string     `json:"kind"`
	From       ecs.Entity `json:"from"`
	To         ecs.Entity `json:"to"`
}

// Recorder receives a copy of every event a channel accepts.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Option configures a channel.
type Option func(*options)

type options struct {
	recorder Recorder
}

// WithRecorder tees accepted events to rec.
func WithRecorder(rec Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

// Channel is the append-only event sink for one relation.
type Channel[R any] struct {
	relation string
	events   []Event[R]
	recorder Recorder
}

func resourceKey(relation string) string {
	return "event/" + relation
}

// Register installs a channel for relation on w, replacing any existing one.
func Register[R any](w *ecs.World, relation string, opts ...Option) *Channel[R] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	ch := &Channel[R]{relation: relation, recorder: o.recorder}
	w.SetResource(resourceKey(relation), ch)
	return ch
}

// Lookup returns relation's channel, if one is registered with event type R.
func Lookup[R any](w *ecs.World, relation string) (*Channel[R], bool) {
	v, ok := w.Resource(resourceKey(relation))
	if !ok {
		return nil, false
	}
	ch, ok := v.(*Channel[R])
	return ch, ok
}

// Emit sends ev to relation's channel. Without a channel the event is dropped.
func Emit[R any](ctx context.Context, w *ecs.World, relation string, ev Event[R]) error {
	ch, ok := Lookup[R](w, relation)
	if !ok {
		return nil
	}
	return ch.Send(ctx, w, ev)
}

// Send appends ev and forwards it to the recorder, stamped with the world's
// current sequence number and flush token.
func (c *Channel[R]) Send(ctx context.Context, w *ecs.World, ev Event[R]) error {
	c.events = append(c.events, ev)
	if c.recorder == nil {
		return nil
	}
	rec := Record{
		Seq:        w.Clock().Current(),
		FlushToken: w.FlushToken(),
		Relation:   c.relation,
		Kind:       ev.Kind.String(),
		From:       ev.From,
		To:         ev.To,
	}
	if err := c.recorder.Record(ctx, rec); err != nil {
		return fmt.Errorf("record %s event %s: %w", c.relation, ev, err)
	}
	return nil
}

// Relation returns the relation name the channel belongs to.
func (c *Channel[R]) Relation() string { return c.relation }

// Len returns the number of undrained events.
func (c *Channel[R]) Len() int { return len(c.events) }

// Events returns the undrained events without consuming them.
func (c *Channel[R]) Events() []Event[R] {
	return slices.Clone(c.events)
}

// Drain returns and clears the undrained events.
func (c *Channel[R]) Drain() []Event[R] {
	out := c.events
	c.events = nil
	return out
}

// MemoryRecorder keeps records in memory.
type MemoryRecorder struct {
	records []Record
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(_ context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return nil
}

// Records returns every record seen so far.
func (m *MemoryRecorder) Records() []Record {
	return slices.Clone(m.records)
}
