package machines

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/automaton/internal/automaton"
	"github.com/roach88/automaton/internal/broadcast"
	"github.com/roach88/automaton/internal/ir"
)

// ErrUnknownInput is returned by Session.Send for text the machine cannot
// parse as an input. Parseable inputs that the current state rejects are
// not errors; they produce a failed Record.
var ErrUnknownInput = errors.New("unknown input")

// ErrSessionClosed is returned by Session.Send after Close or CloseInput.
var ErrSessionClosed = errors.New("session closed")

// Options tunes the built-in machines.
type Options struct {
	// EffectDelay is how long simulated asynchronous work (a login round
	// trip, a search backend) takes before its follow-up input arrives.
	EffectDelay time.Duration
}

// Record is one Reply with the machine's types erased.
type Record struct {
	Seq     int64
	Flow    string
	Cause   int64
	Input   string
	From    ir.IRValue
	To      ir.IRValue // nil when Success is false
	Success bool
}

// Machine is a registered automaton definition.
type Machine interface {
	Name() string
	Description() string
	// Inputs lists the accepted input forms, for help output.
	Inputs() []string
	Initial() ir.IRValue
	// Start runs a fresh automaton fed by the returned Session.
	Start(ctx context.Context, opts ...automaton.Option) Session
}

// Session is one running automaton.
//
// Thread-safety: all methods are safe for concurrent use.
type Session interface {
	// Send parses text and feeds it to the automaton as an external input.
	Send(ctx context.Context, input string) error
	// Records delivers every Record in Seq order. The channel is closed
	// when the automaton stops.
	Records() <-chan Record
	// State returns the current state.
	State() ir.IRValue
	// CloseInput ends the external input stream. The session finishes on
	// its own once pending effects complete.
	CloseInput()
	// Close disposes the automaton, cancelling pending effects, and
	// returns the run error.
	Close() error
	Done() <-chan struct{}
	Err() error
}

// definition adapts a typed machine to Machine.
type definition[S, I any] struct {
	name        string
	description string
	inputs      []string
	initial     S
	next        automaton.NextMapping[S, I]
	parse       func(string) (I, error)
	format      func(I) string
	encode      func(S) ir.IRValue
}

func (d *definition[S, I]) Name() string        { return d.name }
func (d *definition[S, I]) Description() string { return d.description }
func (d *definition[S, I]) Inputs() []string    { return d.inputs }
func (d *definition[S, I]) Initial() ir.IRValue { return d.encode(d.initial) }

// Start implements Machine.
func (d *definition[S, I]) Start(ctx context.Context, opts ...automaton.Option) Session {
	feed := automaton.NewFeed[I]()
	a := automaton.New(d.initial, feed, d.next, opts...)

	s := &session[S, I]{
		def:     d,
		feed:    feed,
		a:       a,
		replies: a.Replies(),
		records: make(chan Record),
		stop:    make(chan struct{}),
	}
	go s.forward()
	a.Start(ctx)
	return s
}

func (d *definition[S, I]) record(r automaton.Reply[S, I]) Record {
	rec := Record{
		Seq:     r.Seq,
		Flow:    r.FlowToken,
		Cause:   r.CauseSeq,
		Input:   d.format(r.Input),
		From:    d.encode(r.From),
		Success: r.Success(),
	}
	if to, ok := r.To(); ok {
		rec.To = d.encode(to)
	}
	return rec
}

type session[S, I any] struct {
	def     *definition[S, I]
	feed    *automaton.Feed[I]
	a       *automaton.Automaton[S, I]
	replies *broadcast.Subscription[automaton.Reply[S, I]]
	records chan Record

	stop     chan struct{}
	stopOnce sync.Once
}

// forward converts replies to records until the reply stream completes or
// Close abandons undelivered records.
func (s *session[S, I]) forward() {
	defer close(s.records)
	for r := range s.replies.C() {
		select {
		case s.records <- s.def.record(r):
		case <-s.stop:
			s.replies.Cancel()
			return
		}
	}
}

func (s *session[S, I]) Send(ctx context.Context, input string) error {
	in, err := s.def.parse(input)
	if err != nil {
		return err
	}

	// Send on a feed nobody consumes any more would block until ctx is
	// done; fail fast instead.
	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.a.Done():
			cancel()
		case <-sendCtx.Done():
		}
	}()

	if err := s.feed.Send(sendCtx, in); err != nil {
		if errors.Is(err, automaton.ErrFeedClosed) || (ctx.Err() == nil && sendCtx.Err() != nil) {
			return ErrSessionClosed
		}
		return err
	}
	return nil
}

func (s *session[S, I]) Records() <-chan Record {
	return s.records
}

func (s *session[S, I]) State() ir.IRValue {
	return s.def.encode(s.a.State().Read())
}

func (s *session[S, I]) CloseInput() {
	s.feed.Close()
}

func (s *session[S, I]) Close() error {
	s.feed.Close()
	s.stopOnce.Do(func() { close(s.stop) })
	s.a.Dispose()
	return s.a.Err()
}

func (s *session[S, I]) Done() <-chan struct{} {
	return s.a.Done()
}

func (s *session[S, I]) Err() error {
	return s.a.Err()
}

// parseEnum returns a parser accepting exactly the given input names.
func parseEnum[I ~string](machine string, valid ...I) func(string) (I, error) {
	return func(text string) (I, error) {
		for _, v := range valid {
			if string(v) == text {
				return v, nil
			}
		}
		var zero I
		return zero, fmt.Errorf("%s: %w %q", machine, ErrUnknownInput, text)
	}
}

func formatString[I ~string](in I) string {
	return string(in)
}
