package automaton

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/automaton/internal/broadcast"
)

// Automaton drives state transitions from an input source and the effects
// its transitions spawn.
//
// Thread-safety model:
//   - Run: call once, from one goroutine; it becomes the single writer
//   - Replies, State, Dispose, Done, Err: safe from any goroutine
//
// INVARIANTS:
//   - state is mutated only by processInput, on the run goroutine
//   - every input dequeued from a live scope yields exactly one Reply
//   - a trigger's Reply is published before its effect starts
type Automaton[S, I any] struct {
	cfg     config
	logger  *slog.Logger
	mapping NextMapping[S, I]
	source  Effect[I]

	state   *StateStore[S]
	replies *broadcast.Hub[Reply[S, I]]
	queue   *broadcast.Queue[envelope[I]]

	// Run-loop owned.
	active   int
	quotas   map[string]*QuotaEnforcer
	flowRefs map[string]int

	producers sync.WaitGroup

	lifeMu   sync.Mutex
	started  bool
	disposed bool
	cancel   context.CancelFunc
	stopping atomic.Bool // set by Dispose so Run reports a clean stop

	done chan struct{}
	err  error
}

// New creates an automaton. It does not start processing until Run is
// called, so subscribers can attach first.
func New[S, I any](initial S, source Effect[I], mapping NextMapping[S, I], opts ...Option) *Automaton[S, I] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	if source == nil {
		source = Empty[I]()
	}

	return &Automaton[S, I]{
		cfg:      cfg,
		logger:   logger,
		mapping:  mapping,
		source:   source,
		state:    newStateStore(initial),
		replies:  broadcast.New[Reply[S, I]](),
		queue:    broadcast.NewQueue[envelope[I]](),
		quotas:   make(map[string]*QuotaEnforcer),
		flowRefs: make(map[string]int),
		done:     make(chan struct{}),
	}
}

// NewFromMapping creates an automaton from a Mapping that never spawns
// effects.
func NewFromMapping[S, I any](initial S, source Effect[I], mapping Mapping[S, I], opts ...Option) *Automaton[S, I] {
	return New(initial, source, Lift(mapping), opts...)
}

// Replies subscribes to the reply stream. The stream is hot: a subscriber
// sees replies published after it subscribed. It completes on teardown.
func (a *Automaton[S, I]) Replies() *broadcast.Subscription[Reply[S, I]] {
	return a.replies.Subscribe()
}

// State returns the state cell.
func (a *Automaton[S, I]) State() *StateStore[S] {
	return a.state
}

// Policy returns the configured flattening policy.
func (a *Automaton[S, I]) Policy() FlattenPolicy {
	return a.cfg.policy
}

// Done is closed once the automaton has torn down.
func (a *Automaton[S, I]) Done() <-chan struct{} {
	return a.done
}

// Err returns the terminal fault, if any. Valid after Done is closed.
func (a *Automaton[S, I]) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// Start runs the automaton in a new goroutine. The outcome is available
// through Done and Err; a Start that cannot run is logged and ignored.
func (a *Automaton[S, I]) Start(ctx context.Context) {
	go func() {
		if err := a.Run(ctx); errors.Is(err, ErrAlreadyStarted) || errors.Is(err, ErrDisposed) {
			a.logger.Debug("automaton start ignored", "error", err)
		}
	}()
}

// Run processes inputs until the source and every effect have finished,
// Dispose is called, a producer faults, or ctx is cancelled.
//
// Returns nil on natural completion and on Dispose, a *RuntimeError on a
// fault, and ctx.Err() when the parent context is cancelled.
//
// CRITICAL: Must be called from exactly ONE goroutine, at most once.
func (a *Automaton[S, I]) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	a.lifeMu.Lock()
	switch {
	case a.started:
		a.lifeMu.Unlock()
		cancel()
		return ErrAlreadyStarted
	case a.disposed:
		a.lifeMu.Unlock()
		cancel()
		return ErrDisposed
	}
	a.started = true
	a.cancel = cancel
	a.lifeMu.Unlock()

	a.logger.Info("automaton starting", "policy", a.cfg.policy.String())

	root := newRootScope(runCtx, cancel)
	a.startProducer(root, a.source)

	err := a.loop(runCtx, root)
	a.teardown(root, err)
	return err
}

// Dispose tears the automaton down: the reply stream completes, state
// subscriptions complete after replaying the final value, and every effect
// is cancelled. Blocks until teardown has finished. Idempotent.
func (a *Automaton[S, I]) Dispose() {
	a.lifeMu.Lock()
	if a.disposed {
		a.lifeMu.Unlock()
		<-a.done
		return
	}
	a.disposed = true
	started, cancel := a.started, a.cancel
	a.lifeMu.Unlock()

	if !started {
		a.queue.Close()
		a.replies.Close()
		a.state.close()
		close(a.done)
		a.logger.Debug("automaton disposed before start")
		return
	}

	a.stopping.Store(true)
	cancel()
	<-a.done
}

// loop is the reply emitter: it owns the state and the scope tree.
func (a *Automaton[S, I]) loop(ctx context.Context, root *scope) error {
	for {
		if ctx.Err() != nil {
			return a.stopReason(ctx)
		}

		env, ok := a.queue.TryDequeue()
		if ok {
			if err := a.process(root, env); err != nil {
				return err
			}
			if a.active == 0 {
				a.logger.Info("automaton completed: source and effects finished")
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return a.stopReason(ctx)
		case <-a.queue.Wait():
		}
	}
}

// stopReason maps run-context cancellation to Run's return value.
func (a *Automaton[S, I]) stopReason(ctx context.Context) error {
	if a.stopping.Load() {
		a.logger.Info("automaton stopping: disposed")
		return nil
	}
	a.logger.Info("automaton stopping: context cancelled")
	return ctx.Err()
}

// process routes one envelope.
// CRITICAL: Called only from the run goroutine.
func (a *Automaton[S, I]) process(root *scope, env envelope[I]) error {
	switch env.kind {
	case envelopeInput:
		a.processInput(root, env)
		return nil
	case envelopeFinished:
		return a.processFinished(env)
	default:
		return errors.New("automaton: unknown envelope kind")
	}
}

// processInput evaluates one input against the current state, exactly once,
// and uses that single result for the reply, the state update and the
// effect.
func (a *Automaton[S, I]) processInput(root *scope, env envelope[I]) {
	s := env.scope
	if s.removed || s.ctx.Err() != nil {
		// Queued by a stream that was switched away from; never delivered.
		return
	}

	flow, cause := s.flow, s.cause
	if s.isRoot() {
		flow = a.cfg.flowGen.Generate()
	}

	from := a.state.Read()
	next, effect, accepted := a.mapping(from, env.input)
	seq := a.cfg.clock.Next()

	if !accepted {
		a.replies.Publish(Failed[S](env.input, from).stamp(seq, flow, cause))
		return
	}

	if a.cfg.policy == Latest && s.latest != nil {
		a.cancelScope(s.latest)
	}

	a.state.update(next)
	a.replies.Publish(Succeeded(env.input, from, next).stamp(seq, flow, cause))

	if isEmpty(effect) {
		return
	}

	if err := a.quotaFor(flow).Check(flow); err != nil {
		a.logger.Error("effect not started: spawn quota exceeded",
			"error", err,
			"flow", flow,
			"seq", seq,
			"limit", a.cfg.maxSpawns,
		)
		return
	}

	child := a.spawnScope(root, s, flow, seq)
	if a.cfg.policy == Latest {
		s.latest = child
	}
	a.startProducer(child, effect)

	a.logger.Debug("effect started",
		"flow", flow,
		"cause", seq,
		"depth", child.depth,
	)
}

// processFinished accounts for a producer that returned.
func (a *Automaton[S, I]) processFinished(env envelope[I]) error {
	a.active--
	s := env.scope
	s.running = false

	// Errors after cancellation are the producer acknowledging it.
	live := !s.removed && s.ctx.Err() == nil

	if env.err != nil && live {
		if s.isRoot() {
			return &RuntimeError{Code: ErrCodeSourceFailed, Err: env.err}
		}
		if !a.cfg.isolateEffects {
			return &RuntimeError{
				Code:      ErrCodeEffectFailed,
				FlowToken: s.flow,
				CauseSeq:  s.cause,
				Err:       env.err,
			}
		}
		a.logger.Warn("effect failed; isolated",
			"error", env.err,
			"flow", s.flow,
			"cause", s.cause,
		)
	}

	a.reap(s)
	return nil
}

// teardown cancels every producer, waits for them to return and completes
// the output streams.
func (a *Automaton[S, I]) teardown(root *scope, err error) {
	root.cancel()
	a.queue.Close()
	a.producers.Wait()

	a.lifeMu.Lock()
	a.disposed = true
	a.lifeMu.Unlock()

	a.replies.Close()
	a.state.close()

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		a.logger.Error("automaton stopped on fault", "error", err)
	}

	a.err = err
	close(a.done)
}
