package container

import (
	"iter"
	"maps"
	"slices"

	"github.com/roach88/relsync/internal/ecs"
)

// Set is a deduplicating container with O(1) membership.
// All and Slice yield entities in ecs.Compare order.
type Set struct {
	m map[ecs.Entity]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{m: make(map[ecs.Entity]struct{})}
}

func (s *Set) Kind() Kind    { return KindSet }
func (s *Set) IsEmpty() bool { return len(s.m) == 0 }
func (s *Set) Len() int      { return len(s.m) }

func (s *Set) Contains(e ecs.Entity) bool {
	_, ok := s.m[e]
	return ok
}

func (s *Set) Push(e ecs.Entity) {
	s.m[e] = struct{}{}
}

func (s *Set) Remove(e ecs.Entity) {
	delete(s.m, e)
}

func (s *Set) All() iter.Seq[ecs.Entity] {
	return slices.Values(s.Slice())
}

func (s *Set) Slice() []ecs.Entity {
	out := slices.Collect(maps.Keys(s.m))
	slices.SortFunc(out, ecs.Compare)
	return out
}

func (s *Set) Clone() Container {
	return &Set{m: maps.Clone(s.m)}
}
