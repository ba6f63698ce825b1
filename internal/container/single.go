package container

import (
	"iter"

	"github.com/roach88/relsync/internal/ecs"
)

// Single holds at most one entity, using ecs.Placeholder for "none".
type Single struct {
	e ecs.Entity
}

// NewSingle returns an empty single container.
func NewSingle() *Single {
	return &Single{e: ecs.Placeholder}
}

func (s *Single) Kind() Kind    { return KindSingle }
func (s *Single) IsEmpty() bool { return s.e == ecs.Placeholder }

func (s *Single) Len() int {
	if s.IsEmpty() {
		return 0
	}
	return 1
}

// Get returns the held entity, if any.
func (s *Single) Get() (ecs.Entity, bool) {
	return s.e, !s.IsEmpty()
}

func (s *Single) Contains(e ecs.Entity) bool {
	return !s.IsEmpty() && s.e == e
}

func (s *Single) Push(e ecs.Entity) {
	s.e = e
}

func (s *Single) Remove(e ecs.Entity) {
	if s.e == e {
		s.e = ecs.Placeholder
	}
}

func (s *Single) All() iter.Seq[ecs.Entity] {
	return func(yield func(ecs.Entity) bool) {
		if !s.IsEmpty() {
			yield(s.e)
		}
	}
}

func (s *Single) Slice() []ecs.Entity {
	if s.IsEmpty() {
		return nil
	}
	return []ecs.Entity{s.e}
}

func (s *Single) Clone() Container {
	c := *s
	return &c
}
