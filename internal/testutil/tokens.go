package testutil

import (
	"fmt"
	"sync"
)

// SequentialTokens generates numbered flush tokens: "flush-1", "flush-2", ...
//
// Unlike ecs.FixedGenerator it never runs out, and it can be reset so the
// same scenario produces identical tokens on every run.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTokens creates a generator. An empty prefix defaults to "flush".
func NewSequentialTokens(prefix string) *SequentialTokens {
	if prefix == "" {
		prefix = "flush"
	}
	return &SequentialTokens{prefix: prefix}
}

// Generate returns the next token. Implements ecs.TokenGenerator.
func (g *SequentialTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Issued returns how many tokens have been generated since the last Reset.
func (g *SequentialTokens) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Last returns the most recently generated token, or "" before the first.
func (g *SequentialTokens) Last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n == 0 {
		return ""
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering. The next Generate returns "<prefix>-1".
func (g *SequentialTokens) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
