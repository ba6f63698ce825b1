package ecs

import (
	"cmp"
	"fmt"
	"math"
)

// Entity is an opaque, comparable handle for a store entity.
//
// The Generation distinguishes reuses of the same Index: once an entity is
// despawned its handle never resolves again, even if the slot is recycled.
type Entity struct {
	Index      uint32 `json:"index"`
	Generation uint32 `json:"generation"`
}

// Placeholder is the sentinel entity. It is never returned by Spawn.
var Placeholder = Entity{Index: math.MaxUint32, Generation: math.MaxUint32}

// IsPlaceholder reports whether e is the sentinel entity.
func (e Entity) IsPlaceholder() bool {
	return e == Placeholder
}

// Bits packs the entity into a single integer (generation in the high word).
// Used for storage columns and stable sorting.
func (e Entity) Bits() uint64 {
	return uint64(e.Generation)<<32 | uint64(e.Index)
}

// FromBits is the inverse of Bits.
func FromBits(bits uint64) Entity {
	return Entity{Index: uint32(bits), Generation: uint32(bits >> 32)}
}

// String formats the entity as "<index>v<generation>".
func (e Entity) String() string {
	if e.IsPlaceholder() {
		return "placeholder"
	}
	return fmt.Sprintf("%dv%d", e.Index, e.Generation)
}

// Compare orders entities by index, then generation.
func Compare(a, b Entity) int {
	if c := cmp.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	return cmp.Compare(a.Generation, b.Generation)
}
