package container

import (
	"iter"
	"slices"

	"github.com/roach88/relsync/internal/ecs"
)

// Inline is an ordered list that keeps up to its capacity in a fixed array
// and spills to the heap past it. Duplicates are kept.
//
// Once spilled it stays on the heap, even if it shrinks back under capacity.
type Inline struct {
	capacity int
	n        int
	small    [MaxInlineCapacity]ecs.Entity
	spill    []ecs.Entity
}

// NewInline returns an empty inline container. capacity is clamped to
// [1, MaxInlineCapacity]; values <= 0 select DefaultInlineCapacity.
func NewInline(capacity int) *Inline {
	switch {
	case capacity <= 0:
		capacity = DefaultInlineCapacity
	case capacity > MaxInlineCapacity:
		capacity = MaxInlineCapacity
	}
	return &Inline{capacity: capacity}
}

// Capacity returns the inline capacity.
func (c *Inline) Capacity() int { return c.capacity }

// Spilled reports whether the contents moved to the heap.
func (c *Inline) Spilled() bool { return c.spill != nil }

func (c *Inline) items() []ecs.Entity {
	if c.spill != nil {
		return c.spill
	}
	return c.small[:c.n]
}

func (c *Inline) Kind() Kind    { return KindInline }
func (c *Inline) IsEmpty() bool { return c.Len() == 0 }
func (c *Inline) Len() int      { return len(c.items()) }

func (c *Inline) Contains(e ecs.Entity) bool {
	return slices.Contains(c.items(), e)
}

func (c *Inline) Push(e ecs.Entity) {
	if c.spill != nil {
		c.spill = append(c.spill, e)
		return
	}
	if c.n < c.capacity {
		c.small[c.n] = e
		c.n++
		return
	}
	c.spill = make([]ecs.Entity, 0, 2*c.capacity)
	c.spill = append(c.spill, c.small[:c.n]...)
	c.spill = append(c.spill, e)
	c.small = [MaxInlineCapacity]ecs.Entity{}
	c.n = 0
}

func (c *Inline) Remove(e ecs.Entity) {
	if c.spill != nil {
		c.spill = slices.DeleteFunc(c.spill, func(x ecs.Entity) bool { return x == e })
		return
	}
	kept := slices.DeleteFunc(c.small[:c.n], func(x ecs.Entity) bool { return x == e })
	c.n = len(kept)
}

func (c *Inline) All() iter.Seq[ecs.Entity] {
	return slices.Values(c.items())
}

func (c *Inline) Slice() []ecs.Entity {
	return slices.Clone(c.items())
}

func (c *Inline) Clone() Container {
	cp := *c
	cp.spill = slices.Clone(c.spill)
	return &cp
}
