package relation

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/roach88/relsync/internal/ecs"
)

// Pair holds an entity's records for both sides of a relation. For a
// symmetric relation Source and Target are the same record.
type Pair[R any] struct {
	Entity ecs.Entity
	Source *Related[R]
	Target *Related[R]
}

func lookupPair[R any](w *ecs.World, rel *Relation[R], e ecs.Entity) Pair[R] {
	p := Pair[R]{Entity: e}
	p.Source, _ = Get(w, e, rel.source)
	p.Target, _ = Get(w, e, rel.target)
	return p
}

// Either returns e's records when it holds at least one side of rel.
func Either[R any](w *ecs.World, rel *Relation[R], e ecs.Entity) (Pair[R], bool) {
	p := lookupPair(w, rel, e)
	return p, p.Source != nil || p.Target != nil
}

// Both returns e's records when it holds both sides of rel.
func Both[R any](w *ecs.World, rel *Relation[R], e ecs.Entity) (Pair[R], bool) {
	p := lookupPair(w, rel, e)
	return p, p.Source != nil && p.Target != nil
}

// Peers returns the entities e points to through side, or nil.
func Peers[R any](w *ecs.World, e ecs.Entity, side *Side[R]) []ecs.Entity {
	rec, ok := Get(w, e, side)
	if !ok {
		return nil
	}
	return rec.Entities()
}

// InconsistencyError describes one edge whose mirror is missing.
type InconsistencyError struct {
	Side   string
	From   ecs.Entity
	To     ecs.Entity
	Reason string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s %s->%s: %s", e.Side, e.From, e.To, e.Reason)
}

// Consistent checks the mirror invariant for every record of rel and
// returns one InconsistencyError per broken edge. It is only meaningful
// when no mirror work is pending.
func Consistent[R any](w *ecs.World, rel *Relation[R]) error {
	var errs error
	for _, side := range rel.Sides() {
		opp := side.opposite
		Each(w, side, func(a ecs.Entity, rec *Related[R]) {
			for _, b := range rec.Entities() {
				if !w.Alive(b) {
					errs = multierr.Append(errs, &InconsistencyError{Side: side.String(), From: a, To: b, Reason: "peer is not alive"})
					continue
				}
				mirror, ok := Get(w, b, opp)
				if !ok {
					errs = multierr.Append(errs, &InconsistencyError{Side: side.String(), From: a, To: b, Reason: "peer has no " + opp.name + " record"})
					continue
				}
				if !mirror.Contains(a) {
					errs = multierr.Append(errs, &InconsistencyError{Side: side.String(), From: a, To: b, Reason: "peer " + opp.name + " record lacks " + a.String()})
				}
			}
		})
	}
	return errs
}
