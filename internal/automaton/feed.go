package automaton

import (
	"context"
	"errors"
	"sync"
)

// ErrFeedClosed is returned by Feed.Send after Close.
var ErrFeedClosed = errors.New("feed closed")

// Feed is a push-based input source: callers Send inputs from any goroutine
// and the automaton consumes them in Send order.
//
// A Feed can be consumed by one Run at a time.
type Feed[I any] struct {
	ch   chan I
	done chan struct{}
	once sync.Once
}

// NewFeed creates an open feed.
func NewFeed[I any]() *Feed[I] {
	return &Feed[I]{
		ch:   make(chan I),
		done: make(chan struct{}),
	}
}

// Send hands input to the consumer, blocking until it is accepted, the feed
// is closed or ctx is done.
func (f *Feed[I]) Send(ctx context.Context, input I) error {
	select {
	case <-f.done:
		return ErrFeedClosed
	default:
	}

	select {
	case f.ch <- input:
		return nil
	case <-f.done:
		return ErrFeedClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream. Idempotent.
func (f *Feed[I]) Close() {
	f.once.Do(func() { close(f.done) })
}

// Run implements Effect.
func (f *Feed[I]) Run(ctx context.Context, emit func(I) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case input := <-f.ch:
			if !emit(input) {
				return nil
			}
		}
	}
}
