package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ecs"
	"github.com/roach88/relsync/internal/event"
)

func TestFamily_AddRemove(t *testing.T) {
	w := newTestWorld(t)
	family := defineFamily()
	mustRegister(t, w, family)
	parentOf, childOf := family.Target(), family.Source()

	a := w.Spawn()
	b := spawnWith(t, w, childOf, a)
	c := spawnWith(t, w, childOf, a)

	_, ok := Get(w, a, parentOf)
	assert.False(t, ok, "no mirror before flush")

	flush(t, w)

	assert.Nil(t, peersOf(w, a, childOf))
	assert.Equal(t, []ecs.Entity{a}, peersOf(w, b, childOf))
	assert.Equal(t, []ecs.Entity{a}, peersOf(w, c, childOf))
	assert.Equal(t, []ecs.Entity{b, c}, peersOf(w, a, parentOf))
	assert.Nil(t, peersOf(w, b, parentOf))
	assert.Nil(t, peersOf(w, c, parentOf))

	require.NoError(t, Remove(w, b, childOf))
	flush(t, w)

	assert.Equal(t, []ecs.Entity{c}, peersOf(w, a, parentOf))

	require.NoError(t, Remove(w, a, parentOf))
	flush(t, w)

	assert.False(t, w.Has(a, parentOf.ComponentID()))
	assert.False(t, w.Has(b, childOf.ComponentID()))
	assert.False(t, w.Has(c, childOf.ComponentID()))
	assert.NoError(t, Consistent(w, family))
}

func TestFamily_EitherAndBoth(t *testing.T) {
	w := newTestWorld(t)
	family := defineFamily()
	mustRegister(t, w, family)

	a := w.Spawn()
	b := spawnWith(t, w, family.Source(), a)
	c := spawnWith(t, w, family.Source(), b)
	flush(t, w)

	aRel, ok := Either(w, family, a)
	require.True(t, ok)
	assert.Nil(t, aRel.Source)
	assert.Equal(t, []ecs.Entity{b}, aRel.Target.Entities())
	_, ok = Both(w, family, a)
	assert.False(t, ok)

	bRel, ok := Both(w, family, b)
	require.True(t, ok)
	assert.Equal(t, []ecs.Entity{a}, bRel.Source.Entities())
	assert.Equal(t, []ecs.Entity{c}, bRel.Target.Entities())

	cRel, ok := Either(w, family, c)
	require.True(t, ok)
	assert.Equal(t, []ecs.Entity{b}, cRel.Source.Entities())
	assert.Nil(t, cRel.Target)

	_, ok = Either(w, family, w.Spawn())
	assert.False(t, ok)
}

func TestFamily_ReplacementIsADiff(t *testing.T) {
	w := newTestWorld(t)
	family := defineFamily()
	mustRegister(t, w, family)
	ch := event.Register[Family](w, family.Name())
	parentOf, childOf := family.Target(), family.Source()

	a, b, c, d := w.Spawn(), w.Spawn(), w.Spawn(), w.Spawn()
	require.NoError(t, Insert(w, a, parentOf, b, c))
	flush(t, w)
	assert.Equal(t, []event.Event[Family]{
		{Kind: event.Added, From: a, To: b},
		{Kind: event.Added, From: a, To: c},
	}, ch.Drain())

	require.NoError(t, Insert(w, a, parentOf, c, d))
	flush(t, w)

	assert.Equal(t, []event.Event[Family]{
		{Kind: event.Removed, From: a, To: b},
		{Kind: event.Added, From: a, To: d},
	}, ch.Drain(), "c's mirror is untouched")

	assert.Nil(t, peersOf(w, b, childOf))
	assert.Equal(t, []ecs.Entity{a}, peersOf(w, c, childOf))
	assert.Equal(t, []ecs.Entity{a}, peersOf(w, d, childOf))
	assert.NoError(t, Consistent(w, family))
}

func TestFamily_SingleMirrorDisplacementEvicts(t *testing.T) {
	w := newTestWorld(t)
	family := defineFamily()
	mustRegister(t, w, family)
	ch := event.Register[Family](w, family.Name())
	parentOf, childOf := family.Target(), family.Source()

	a := w.Spawn()
	b := spawnWith(t, w, childOf, a)
	flush(t, w)
	ch.Drain()

	// x adopts b from the parent side; b can only have one parent.
	x := spawnWith(t, w, parentOf, b)
	flush(t, w)

	assert.Equal(t, []ecs.Entity{x}, peersOf(w, b, childOf))
	assert.Nil(t, peersOf(w, a, parentOf), "a's emptied mirror is removed")
	assert.Equal(t, []event.Event[Family]{
		{Kind: event.Added, From: x, To: b},
		{Kind: event.Removed, From: b, To: a},
	}, ch.Drain())
	assert.NoError(t, Consistent(w, family))
}

func TestFamily_AddAndDiscard(t *testing.T) {
	w := newTestWorld(t)
	family := defineFamily()
	mustRegister(t, w, family)
	parentOf, childOf := family.Target(), family.Source()

	a, b, c := w.Spawn(), w.Spawn(), w.Spawn()
	require.NoError(t, Add(w, a, parentOf, b))
	require.NoError(t, Add(w, a, parentOf, c))
	flush(t, w)
	assert.Equal(t, []ecs.Entity{b, c}, peersOf(w, a, parentOf))
	assert.Equal(t, []ecs.Entity{a}, peersOf(w, c, childOf))

	require.NoError(t, Discard(w, a, parentOf, b))
	flush(t, w)
	assert.Equal(t, []ecs.Entity{c}, peersOf(w, a, parentOf))
	assert.Nil(t, peersOf(w, b, childOf))

	require.NoError(t, Discard(w, a, parentOf, c))
	flush(t, w)
	assert.False(t, w.Has(a, parentOf.ComponentID()))
	assert.Nil(t, peersOf(w, c, childOf))
	assert.NoError(t, Consistent(w, family))
}

func TestFamily_DespawnTearsDownMirrors(t *testing.T) {
	w := newTestWorld(t)
	family := defineFamily()
	mustRegister(t, w, family)

	a := w.Spawn()
	b := spawnWith(t, w, family.Source(), a)
	c := spawnWith(t, w, family.Source(), a)
	flush(t, w)

	w.Despawn(a)
	flush(t, w)

	assert.Nil(t, peersOf(w, b, family.Source()))
	assert.Nil(t, peersOf(w, c, family.Source()))
	assert.NoError(t, Consistent(w, family))
}

func TestFamily_DeadPeerIsSkipped(t *testing.T) {
	w := newTestWorld(t)
	family := defineFamily()
	mustRegister(t, w, family)
	ch := event.Register[Family](w, family.Name())

	a := w.Spawn()
	b := spawnWith(t, w, family.Source(), a)
	w.Despawn(a)

	require.NoError(t, w.Flush(t.Context()))
	assert.Equal(t, 0, ch.Len())
	assert.Equal(t, []ecs.Entity{a}, peersOf(w, b, family.Source()), "the caller's own record is never rewritten")
}

func TestInsert_EmptyRecordRejected(t *testing.T) {
	w := newTestWorld(t)
	family := defineFamily()
	mustRegister(t, w, family)

	err := Insert(w, w.Spawn(), family.Source())
	assert.ErrorIs(t, err, ErrEmptyRecord)
}
