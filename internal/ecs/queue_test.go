package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue_FIFO(t *testing.T) {
	q := newCommandQueue()
	var log []string

	for _, label := range []string{"a", "b", "c"} {
		q.Enqueue(queued{cmd: &recordCommand{label: label, log: &log}})
	}
	assert.Equal(t, 3, q.Len())

	var got []string
	for {
		e, ok := q.TryDequeue()
		if !ok {
			break
		}
		got = append(got, e.cmd.(*recordCommand).label)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, q.Len())
}

func TestCommandQueue_Clear(t *testing.T) {
	q := newCommandQueue()
	var log []string
	q.Enqueue(queued{cmd: &recordCommand{label: "a", log: &log}, depth: 2})
	q.Enqueue(queued{cmd: &recordCommand{label: "b", log: &log}})

	require.Equal(t, 2, q.Clear())
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestWorld_QueueDepthInheritance(t *testing.T) {
	w := quietWorld()
	var log []string
	var depths []int

	var probe func(label string, more int) *recordCommand
	probe = func(label string, more int) *recordCommand {
		return &recordCommand{label: label, log: &log, then: func(w *World) {
			depths = append(depths, w.depth)
			if more > 0 {
				w.Queue(probe(label+"+", more-1))
			}
		}}
	}

	w.Queue(probe("x", 2))
	w.Queue(probe("y", 0))
	require.NoError(t, w.Flush(t.Context()))

	assert.Equal(t, []string{"x", "y", "x+", "x++"}, log)
	assert.Equal(t, []int{0, 0, 1, 2}, depths)
}

func TestClock_Monotonic(t *testing.T) {
	c := NewClockAt(41)
	assert.Equal(t, int64(41), c.Current())
	assert.Equal(t, int64(42), c.Next())
	assert.Equal(t, int64(43), c.Next())
	assert.Equal(t, int64(43), c.Current())
}
