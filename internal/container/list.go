package container

import (
	"iter"
	"slices"

	"github.com/roach88/relsync/internal/ecs"
)

// List is an ordered, heap-backed list. Duplicates are kept.
type List struct {
	items []ecs.Entity
}

func (l *List) Kind() Kind    { return KindList }
func (l *List) IsEmpty() bool { return len(l.items) == 0 }
func (l *List) Len() int      { return len(l.items) }

func (l *List) Contains(e ecs.Entity) bool {
	return slices.Contains(l.items, e)
}

func (l *List) Push(e ecs.Entity) {
	l.items = append(l.items, e)
}

func (l *List) Remove(e ecs.Entity) {
	l.items = slices.DeleteFunc(l.items, func(x ecs.Entity) bool { return x == e })
}

func (l *List) All() iter.Seq[ecs.Entity] {
	return slices.Values(l.items)
}

func (l *List) Slice() []ecs.Entity {
	return slices.Clone(l.items)
}

func (l *List) Clone() Container {
	return &List{items: slices.Clone(l.items)}
}
