package ecs

import "sync"

// queued is a command plus the cascade depth it was scheduled at.
type queued struct {
	cmd   Command
	depth int
}

// commandQueue is a FIFO queue of deferred commands.
//
// The queue is unbounded so a flush can schedule arbitrarily many follow-on
// commands without blocking; the world's step quota bounds the total work.
type commandQueue struct {
	mu      sync.Mutex
	entries []queued
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		entries: make([]queued, 0, 64),
	}
}

// Enqueue adds a command to the back of the queue.
func (q *commandQueue) Enqueue(e queued) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
}

// TryDequeue removes and returns the front command.
// Returns false if the queue is empty.
func (q *commandQueue) TryDequeue() (queued, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return queued{}, false
	}

	e := q.entries[0]

	// Nil out the slot so the backing array does not pin the command.
	q.entries[0] = queued{}

	if len(q.entries) == 1 {
		q.entries = q.entries[:0]
	} else {
		q.entries = q.entries[1:]
	}

	return e, true
}

// Len returns the number of pending commands.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear drops every pending command and returns how many were dropped.
func (q *commandQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.entries)
	clear(q.entries)
	q.entries = q.entries[:0]
	return n
}
