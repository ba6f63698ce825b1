package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ecs"
)

func TestFriendship_AddRemove(t *testing.T) {
	w := newTestWorld(t)
	friendship := defineFriendship()
	mustRegister(t, w, friendship)
	friendOf := friendship.Source()

	a := w.Spawn()
	b := spawnWith(t, w, friendOf, a)
	c := spawnWith(t, w, friendOf, a, b)
	flush(t, w)

	assert.Equal(t, []ecs.Entity{b, c}, peersOf(w, a, friendOf))
	assert.Equal(t, []ecs.Entity{a, c}, peersOf(w, b, friendOf))
	assert.Equal(t, []ecs.Entity{a, b}, peersOf(w, c, friendOf))

	require.NoError(t, Remove(w, b, friendOf))
	flush(t, w)

	assert.Equal(t, []ecs.Entity{c}, peersOf(w, a, friendOf))
	assert.Nil(t, peersOf(w, b, friendOf))
	assert.Equal(t, []ecs.Entity{a}, peersOf(w, c, friendOf))
	assert.NoError(t, Consistent(w, friendship))
}

func TestFriendship_BothIsSameRecord(t *testing.T) {
	w := newTestWorld(t)
	friendship := defineFriendship()
	mustRegister(t, w, friendship)

	a := w.Spawn()
	b := spawnWith(t, w, friendship.Source(), a)
	flush(t, w)

	p, ok := Both(w, friendship, b)
	require.True(t, ok)
	assert.Same(t, p.Source, p.Target)
}

func TestFriendship_SelfReference(t *testing.T) {
	w := newTestWorld(t)
	friendship := defineFriendship()
	mustRegister(t, w, friendship)

	a := w.Spawn()
	b := w.Spawn()
	require.NoError(t, Insert(w, a, friendship.Source(), a, b))
	flush(t, w)

	assert.Equal(t, []ecs.Entity{a, b}, peersOf(w, a, friendship.Source()), "no duplicate self edge")
	assert.Equal(t, []ecs.Entity{a}, peersOf(w, b, friendship.Source()))
	assert.NoError(t, Consistent(w, friendship))
}
