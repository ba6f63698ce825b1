package relation

import (
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/relsync/internal/container"
	"github.com/roach88/relsync/internal/ecs"
)

// ErrEmptyRecord is returned when a caller writes a record with no peers.
// Use Remove to clear a side.
var ErrEmptyRecord = errors.New("related record is empty")

// Related is the record of one side attached to one entity: the peers that
// entity points to.
//
// Records are read-only to callers. Write through Insert, Add, Discard and
// Remove; the synchroniser mutates stored mirror records in place.
type Related[R any] struct {
	side *Side[R]
	c    container.Container
}

// Side returns the side the record belongs to.
func (r *Related[R]) Side() *Side[R] { return r.side }

// Len returns the number of held peers, counting duplicates.
func (r *Related[R]) Len() int { return r.c.Len() }

// IsEmpty reports whether the record holds no peers.
func (r *Related[R]) IsEmpty() bool { return r.c.IsEmpty() }

// Contains reports whether e is a peer.
func (r *Related[R]) Contains(e ecs.Entity) bool { return r.c.Contains(e) }

// All iterates the peers in container order.
func (r *Related[R]) All() iter.Seq[ecs.Entity] { return r.c.All() }

// Entities returns a copy of the peers in container order.
func (r *Related[R]) Entities() []ecs.Entity { return r.c.Slice() }

// String formats the record as "ChildOf[0v0]".
func (r *Related[R]) String() string {
	return fmt.Sprintf("%s%v", r.side.name, r.c.Slice())
}

// Register installs hooks for every side of rel on w.
func Register[R any](w *ecs.World, rel *Relation[R]) error {
	for _, side := range rel.Sides() {
		if err := w.RegisterComponent(side.ComponentID(), side.hooks()); err != nil {
			return fmt.Errorf("register relation %s: %w", rel.name, err)
		}
	}
	return nil
}

// Get returns e's record for side.
func Get[R any](w *ecs.World, e ecs.Entity, side *Side[R]) (*Related[R], bool) {
	v, ok := w.Get(e, side.ComponentID())
	if !ok {
		return nil, false
	}
	rec, ok := v.(*Related[R])
	return rec, ok
}

// Has reports whether e's record for side points at peer.
func Has[R any](w *ecs.World, e ecs.Entity, side *Side[R], peer ecs.Entity) bool {
	rec, ok := Get(w, e, side)
	return ok && rec.Contains(peer)
}

// Insert writes e's record for side, replacing any previous record.
//
// The replaced peers are disassociated and the new peers associated at the
// next flush. Peers present in both are left untouched.
func Insert[R any](w *ecs.World, e ecs.Entity, side *Side[R], peers ...ecs.Entity) error {
	if len(peers) == 0 {
		return fmt.Errorf("insert %s on %s: %w", side, e, ErrEmptyRecord)
	}
	return w.Insert(e, side.ComponentID(), &Related[R]{side: side, c: side.newContainer(peers...)})
}

// Add pushes peers onto e's record for side, creating it if needed.
func Add[R any](w *ecs.World, e ecs.Entity, side *Side[R], peers ...ecs.Entity) error {
	c := side.newContainer()
	if cur, ok := Get(w, e, side); ok {
		c = cur.c.Clone()
	}
	for _, p := range peers {
		c.Push(p)
	}
	if c.IsEmpty() {
		return nil
	}
	return w.Insert(e, side.ComponentID(), &Related[R]{side: side, c: c})
}

// Discard drops peers from e's record for side, removing the record when
// nothing is left.
func Discard[R any](w *ecs.World, e ecs.Entity, side *Side[R], peers ...ecs.Entity) error {
	cur, ok := Get(w, e, side)
	if !ok {
		return nil
	}
	c := cur.c.Clone()
	for _, p := range peers {
		c.Remove(p)
	}
	if c.IsEmpty() {
		return w.Remove(e, side.ComponentID())
	}
	return w.Insert(e, side.ComponentID(), &Related[R]{side: side, c: c})
}

// Remove deletes e's record for side. Its peers are disassociated at the
// next flush.
func Remove[R any](w *ecs.World, e ecs.Entity, side *Side[R]) error {
	return w.Remove(e, side.ComponentID())
}

// Each calls fn for every entity holding a record of side, in entity order.
func Each[R any](w *ecs.World, side *Side[R], fn func(e ecs.Entity, rec *Related[R])) {
	w.Each(side.ComponentID(), func(e ecs.Entity, v any) {
		if rec, ok := v.(*Related[R]); ok {
			fn(e, rec)
		}
	})
}
