package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/automaton/internal/automaton"
)

var _ automaton.FlowTokenGenerator = (*SequenceFlowGenerator)(nil)

// SequenceFlowGenerator issues readable flow tokens "<prefix>-1",
// "<prefix>-2", ... in order. Golden traces depend on these being stable.
//
// Thread-safety: safe for concurrent use.
type SequenceFlowGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceFlowGenerator creates a generator. An empty prefix means "flow".
func NewSequenceFlowGenerator(prefix string) *SequenceFlowGenerator {
	if prefix == "" {
		prefix = "flow"
	}
	return &SequenceFlowGenerator{prefix: prefix}
}

// Generate returns the next token.
func (g *SequenceFlowGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequenceFlowGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
