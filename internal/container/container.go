// Package container provides the storage shapes a relation side uses to hold
// its peer entities.
//
// Four kinds exist:
//   - Single: zero or one entity. Push overwrites.
//   - Inline: ordered, duplicates allowed, stored in place up to a small
//     capacity before spilling to the heap.
//   - List: ordered, duplicates allowed.
//   - Set: deduplicating, O(1) membership. Iterates in entity order.
//
// For every kind, Remove(e) followed by Contains(e) is false.
package container

import (
	"fmt"
	"iter"

	"github.com/roach88/relsync/internal/ecs"
)

// Kind identifies a container shape.
type Kind uint8

const (
	KindSingle Kind = iota
	KindInline
	KindList
	KindSet
)

// DefaultInlineCapacity is used when an inline side declares no capacity.
const DefaultInlineCapacity = 4

// MaxInlineCapacity is the largest capacity stored without a heap allocation.
const MaxInlineCapacity = 8

var kindNames = [...]string{
	KindSingle: "single",
	KindInline: "inline",
	KindList:   "list",
	KindSet:    "set",
}

// String returns the declarative name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind resolves a declarative kind name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown container kind %q (want single, inline, list or set)", s)
}

// Ordered reports whether the kind preserves insertion order.
func (k Kind) Ordered() bool {
	return k == KindInline || k == KindList
}

// Container is the set of entities one side of a relation points to.
type Container interface {
	Kind() Kind
	IsEmpty() bool
	Len() int
	Contains(e ecs.Entity) bool
	// Push adds e. Single overwrites, Set ignores duplicates, lists append.
	Push(e ecs.Entity)
	// Remove deletes every occurrence of e. Absent entities are a no-op.
	Remove(e ecs.Entity)
	All() iter.Seq[ecs.Entity]
	Slice() []ecs.Entity
	Clone() Container
}

// New returns a container of the given kind holding exactly e.
// capacity only applies to KindInline; values <= 0 select the default.
func New(kind Kind, capacity int, e ecs.Entity) Container {
	c := Empty(kind, capacity)
	c.Push(e)
	return c
}

// Empty returns an empty container of the given kind.
func Empty(kind Kind, capacity int) Container {
	switch kind {
	case KindSingle:
		return NewSingle()
	case KindInline:
		return NewInline(capacity)
	case KindList:
		return &List{}
	case KindSet:
		return NewSet()
	default:
		panic(fmt.Sprintf("container: unknown kind %d", kind))
	}
}

// FromSlice builds a container by pushing each entity in order.
func FromSlice(kind Kind, capacity int, entities ...ecs.Entity) Container {
	c := Empty(kind, capacity)
	for _, e := range entities {
		c.Push(e)
	}
	return c
}
