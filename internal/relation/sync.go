package relation

import (
	"context"
	"fmt"

	"github.com/roach88/relsync/internal/container"
	"github.com/roach88/relsync/internal/ecs"
	"github.com/roach88/relsync/internal/event"
)

// Op is the kind of mirror update a command performs.
type Op uint8

const (
	// OpAssociate installs A in B's opposite record.
	OpAssociate Op = iota + 1
	// OpDisassociate removes A from B's opposite record.
	OpDisassociate
	// OpEvict removes a single mirror's displaced peer. It runs the
	// disassociate check with A as the holder and B as the displaced peer.
	OpEvict
)

var opNames = map[Op]string{
	OpAssociate:    "associate",
	OpDisassociate: "disassociate",
	OpEvict:        "evict",
}

// String returns the lower-case op name.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", o)
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) {
	if _, ok := opNames[o]; !ok {
		return nil, fmt.Errorf("unknown op %d", o)
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Op) UnmarshalText(text []byte) error {
	for op, name := range opNames {
		if name == string(text) {
			*o = op
			return nil
		}
	}
	return fmt.Errorf("unknown op %q", text)
}

// Mirror is one deferred mirror update: apply Op for the edge A -> B, where
// A holds a record of Side.
//
// Mirrors are plain values. A decoded Mirror must be bound to its relation
// with Bind before it can be applied.
type Mirror[R any] struct {
	Op       Op         `json:"op"`
	Relation string     `json:"relation"`
	Side     string     `json:"side"`
	A        ecs.Entity `json:"a"`
	B        ecs.Entity `json:"b"`

	side *Side[R]
}

func newMirror[R any](op Op, side *Side[R], a, b ecs.Entity) Mirror[R] {
	return Mirror[R]{Op: op, Relation: side.rel.name, Side: side.name, A: a, B: b, side: side}
}

// Bind resolves the command's side against rel.
func (m *Mirror[R]) Bind(rel *Relation[R]) error {
	if m.Relation != rel.name {
		return fmt.Errorf("bind %s: command belongs to relation %q", rel.name, m.Relation)
	}
	side, ok := rel.Side(m.Side)
	if !ok {
		return fmt.Errorf("bind %s: unknown side %q", rel.name, m.Side)
	}
	m.side = side
	return nil
}

// String formats the command as "associate Family/ChildOf 1v0->0v0".
func (m Mirror[R]) String() string {
	return fmt.Sprintf("%s %s/%s %s->%s", m.Op, m.Relation, m.Side, m.A, m.B)
}

// Apply implements ecs.Command.
func (m Mirror[R]) Apply(ctx context.Context, w *ecs.World) error {
	if m.side == nil {
		return fmt.Errorf("%s: command not bound to a relation", m)
	}
	switch m.Op {
	case OpAssociate:
		return associate(ctx, w, m.side, m.A, m.B)
	case OpDisassociate, OpEvict:
		return disassociate(ctx, w, m.side, m.A, m.B)
	default:
		return fmt.Errorf("%s: unknown op", m)
	}
}

func (s *Side[R]) hooks() ecs.Hooks {
	return ecs.Hooks{
		OnInsert: func(w *ecs.World, a ecs.Entity) {
			rec, ok := Get(w, a, s)
			if !ok {
				return
			}
			for b := range rec.c.All() {
				w.Queue(newMirror(OpAssociate, s, a, b))
			}
		},
		OnReplace: s.scheduleDisassociate,
		OnRemove:  s.scheduleDisassociate,
	}
}

// scheduleDisassociate snapshots the outgoing record's peers at write time.
func (s *Side[R]) scheduleDisassociate(w *ecs.World, a ecs.Entity, old any) {
	rec, ok := old.(*Related[R])
	if !ok {
		return
	}
	for _, b := range rec.c.Slice() {
		w.Queue(newMirror(OpDisassociate, s, a, b))
	}
}

// associate installs a in b's opposite record if a's live record still
// points at b and b's mirror lacks a.
func associate[R any](ctx context.Context, w *ecs.World, side *Side[R], a, b ecs.Entity) error {
	if !w.Alive(b) {
		return nil
	}
	if cur, ok := Get(w, a, side); !ok || !cur.c.Contains(b) {
		return nil
	}

	opp := side.opposite
	mirror, ok := Get(w, b, opp)
	switch {
	case !ok:
		if err := w.Insert(b, opp.ComponentID(), &Related[R]{side: opp, c: opp.newContainer(a)}); err != nil {
			return err
		}
	case mirror.c.Contains(a):
		return nil
	default:
		if single, isSingle := mirror.c.(*container.Single); isSingle {
			if displaced, held := single.Get(); held {
				w.Queue(newMirror(OpEvict, opp, b, displaced))
			}
		}
		mirror.c.Push(a)
	}

	w.Logger().Debug("mirror installed", "relation", side.rel.name, "side", side.name, "from", a, "to", b)
	return event.Emit(ctx, w, side.rel.name, event.Event[R]{Kind: event.Added, From: a, To: b})
}

// disassociate removes a from b's opposite record unless a's live record
// points at b again. An emptied mirror record is removed from b.
func disassociate[R any](ctx context.Context, w *ecs.World, side *Side[R], a, b ecs.Entity) error {
	if !w.Alive(b) {
		return nil
	}
	if cur, ok := Get(w, a, side); ok && cur.c.Contains(b) {
		return nil
	}

	opp := side.opposite
	mirror, ok := Get(w, b, opp)
	if !ok || !mirror.c.Contains(a) {
		return nil
	}
	mirror.c.Remove(a)
	if mirror.c.IsEmpty() {
		if err := w.Remove(b, opp.ComponentID()); err != nil {
			return err
		}
	}

	w.Logger().Debug("mirror removed", "relation", side.rel.name, "side", side.name, "from", a, "to", b)
	return event.Emit(ctx, w, side.rel.name, event.Event[R]{Kind: event.Removed, From: a, To: b})
}
