package automaton

import "context"

// envelopeKind distinguishes queue entries.
type envelopeKind int

const (
	envelopeInput envelopeKind = iota + 1
	envelopeFinished
)

// envelope is one entry of the merged input queue.
//
// A producer enqueues every item it emits, then exactly one finished
// envelope. FIFO order guarantees the run loop has seen all of a producer's
// items before it learns the producer is done.
type envelope[I any] struct {
	kind  envelopeKind
	input I
	scope *scope
	err   error
}

// scope is one node of the recursion tree: the root (the input source) or an
// effect started by a successful transition.
//
// Scopes are owned by the run loop; no field is touched from any other
// goroutine except ctx, which producers only read.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	parent   *scope
	children map[*scope]struct{}
	// latest is the most recently started child, the one the Latest policy
	// cancels on the next success at this level.
	latest *scope

	flow    string // inherited flow token; empty for the root
	cause   int64  // Seq of the reply that started this scope
	depth   int
	running bool // producer goroutine still active
	removed bool // detached from the tree (cancelled or reaped)
}

func (s *scope) isRoot() bool {
	return s.parent == nil
}

// newRootScope creates the root of the tree.
func newRootScope(ctx context.Context, cancel context.CancelFunc) *scope {
	return &scope{
		ctx:      ctx,
		cancel:   cancel,
		children: make(map[*scope]struct{}),
		running:  true,
	}
}

// spawnScope attaches a child for an effect started by the reply with Seq
// cause. Every child derives its context from the root, so cancellation of
// a subtree is explicit (cancelScope) while teardown still reaches everyone.
func (a *Automaton[S, I]) spawnScope(root, parent *scope, flow string, cause int64) *scope {
	ctx, cancel := context.WithCancel(root.ctx)
	child := &scope{
		ctx:      ctx,
		cancel:   cancel,
		parent:   parent,
		children: make(map[*scope]struct{}),
		flow:     flow,
		cause:    cause,
		depth:    parent.depth + 1,
		running:  true,
	}
	parent.children[child] = struct{}{}
	a.flowRefs[flow]++
	return child
}

// cancelScope cancels s and everything derived from it and detaches the
// subtree. Items those producers already queued are dropped on dequeue.
func (a *Automaton[S, I]) cancelScope(s *scope) {
	if s.removed {
		return
	}
	for child := range s.children {
		a.cancelScope(child)
	}
	s.cancel()
	a.detach(s)

	a.logger.Debug("effect cancelled",
		"flow", s.flow,
		"cause", s.cause,
		"depth", s.depth,
	)
}

// reap releases a scope whose producer has finished and whose children are
// all gone, then walks up to release newly idle ancestors.
func (a *Automaton[S, I]) reap(s *scope) {
	for s != nil && !s.isRoot() && !s.removed && !s.running && len(s.children) == 0 {
		parent := s.parent
		s.cancel()
		a.detach(s)
		s = parent
	}
}

func (a *Automaton[S, I]) detach(s *scope) {
	if s.removed {
		return
	}
	s.removed = true
	if s.parent != nil {
		delete(s.parent.children, s)
		if s.parent.latest == s {
			s.parent.latest = nil
		}
	}

	a.flowRefs[s.flow]--
	if a.flowRefs[s.flow] <= 0 {
		delete(a.flowRefs, s.flow)
		delete(a.quotas, s.flow)
	}
}

// startProducer runs eff in its own goroutine, feeding the merged queue.
func (a *Automaton[S, I]) startProducer(s *scope, eff Effect[I]) {
	a.active++
	a.producers.Add(1)

	go func() {
		defer a.producers.Done()

		err := eff.Run(s.ctx, func(input I) bool {
			if s.ctx.Err() != nil {
				return false
			}
			return a.queue.Enqueue(envelope[I]{kind: envelopeInput, input: input, scope: s})
		})
		a.queue.Enqueue(envelope[I]{kind: envelopeFinished, scope: s, err: err})
	}()
}

// quotaFor returns the spawn quota tracker of a flow, creating it on first use.
func (a *Automaton[S, I]) quotaFor(flow string) *QuotaEnforcer {
	if q, ok := a.quotas[flow]; ok {
		return q
	}
	q := NewQuotaEnforcer(a.cfg.maxSpawns)
	a.quotas[flow] = q
	return q
}
