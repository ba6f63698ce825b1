package relation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/container"
	"github.com/roach88/relsync/internal/ecs"
)

// Family is a directed 1:N relation.
type Family struct{}

// Friendship is an undirected N:M relation.
type Friendship struct{}

// Marriage is an undirected 1:1 relation.
type Marriage struct{}

func defineFamily() *Relation[Family] {
	return MustDefine[Family]("Family",
		SideSpec{Name: "ChildOf", Container: container.KindSingle},
		SideSpec{Name: "ParentOf", Container: container.KindInline, Capacity: 8},
	)
}

func defineFriendship() *Relation[Friendship] {
	return MustDefineSymmetric[Friendship]("Friendship",
		SideSpec{Name: "FriendOf", Container: container.KindInline, Capacity: 8})
}

func defineMarriage() *Relation[Marriage] {
	return MustDefineSymmetric[Marriage]("Marriage",
		SideSpec{Name: "SignificantOtherOf", Container: container.KindSingle})
}

func newTestWorld(t *testing.T) *ecs.World {
	t.Helper()
	return ecs.NewWorld(
		ecs.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		ecs.WithTokenGenerator(ecs.NewFixedGenerator("flush-test")),
	)
}

func mustRegister[R any](t *testing.T, w *ecs.World, rel *Relation[R]) {
	t.Helper()
	require.NoError(t, Register(w, rel))
}

func flush(t *testing.T, w *ecs.World) {
	t.Helper()
	require.NoError(t, w.Flush(context.Background()))
	require.Zero(t, w.Pending())
}

// spawnWith spawns an entity holding a record of side pointing at peers.
func spawnWith[R any](t *testing.T, w *ecs.World, side *Side[R], peers ...ecs.Entity) ecs.Entity {
	t.Helper()
	e := w.Spawn()
	require.NoError(t, Insert(w, e, side, peers...))
	return e
}

func peersOf[R any](w *ecs.World, e ecs.Entity, side *Side[R]) []ecs.Entity {
	return Peers(w, e, side)
}
