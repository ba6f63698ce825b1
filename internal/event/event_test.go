package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ecs"
)

type friendship struct{}
type marriage struct{}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, Record) error { return errors.New("disk full") }

func TestEmit_WithoutChannelIsDropped(t *testing.T) {
	w := ecs.NewWorld()
	err := Emit(context.Background(), w, "Friendship", Event[friendship]{Kind: Added})
	assert.NoError(t, err)

	_, ok := Lookup[friendship](w, "Friendship")
	assert.False(t, ok)
}

func TestChannel_SendDrain(t *testing.T) {
	w := ecs.NewWorld()
	ch := Register[friendship](w, "Friendship")
	a, b := w.Spawn(), w.Spawn()

	require.NoError(t, Emit(context.Background(), w, "Friendship", Event[friendship]{Kind: Added, From: a, To: b}))
	require.NoError(t, Emit(context.Background(), w, "Friendship", Event[friendship]{Kind: Removed, From: b, To: a}))

	assert.Equal(t, 2, ch.Len())
	assert.Equal(t, []Event[friendship]{{Added, a, b}, {Removed, b, a}}, ch.Events())

	drained := ch.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, "Added(0v0, 1v0)", drained[0].String())
	assert.Equal(t, "Removed(1v0, 0v0)", drained[1].String())
	assert.Equal(t, 0, ch.Len())
	assert.Empty(t, ch.Drain())
}

func TestLookup_TypeMismatch(t *testing.T) {
	w := ecs.NewWorld()
	Register[friendship](w, "Friendship")

	_, ok := Lookup[marriage](w, "Friendship")
	assert.False(t, ok)
	assert.NoError(t, Emit(context.Background(), w, "Friendship", Event[marriage]{Kind: Added}))
}

func TestChannel_Recorder(t *testing.T) {
	w := ecs.NewWorld(ecs.WithTokenGenerator(ecs.NewFixedGenerator("flush-1")))
	rec := &MemoryRecorder{}
	ch := Register[marriage](w, "Marriage", WithRecorder(rec))
	a, b := w.Spawn(), w.Spawn()

	require.NoError(t, ch.Send(context.Background(), w, Event[marriage]{Kind: Added, From: a, To: b}))

	require.Len(t, rec.Records(), 1)
	assert.Equal(t, Record{Relation: "Marriage", Kind: "Added", From: a, To: b}, rec.Records()[0])
}

func TestChannel_RecorderFailureKeepsEvent(t *testing.T) {
	w := ecs.NewWorld()
	ch := Register[marriage](w, "Marriage", WithRecorder(failingRecorder{}))

	err := ch.Send(context.Background(), w, Event[marriage]{Kind: Removed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, ch.Len())
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Added, Removed} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("Changed")
	assert.Error(t, err)
}
