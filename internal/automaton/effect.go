package automaton

import (
	"context"
	"time"
)

// Effect is an asynchronous producer of inputs.
//
// Run pushes items through emit until the stream ends, ctx is cancelled, or
// emit returns false. Implementations must return promptly once ctx is done;
// teardown waits for every Run call to return.
//
// An error returned while ctx is still live is a fault (see RuntimeError).
// Errors returned after cancellation are ignored.
type Effect[I any] interface {
	Run(ctx context.Context, emit func(I) bool) error
}

// EffectFunc adapts a function to Effect.
type EffectFunc[I any] func(ctx context.Context, emit func(I) bool) error

// Run implements Effect.
func (f EffectFunc[I]) Run(ctx context.Context, emit func(I) bool) error {
	return f(ctx, emit)
}

type emptyEffect[I any] struct{}

func (emptyEffect[I]) Run(context.Context, func(I) bool) error { return nil }

// Empty returns an effect that emits nothing. The automaton does not start a
// producer for it.
func Empty[I any]() Effect[I] {
	return emptyEffect[I]{}
}

// isEmpty reports whether eff would never emit.
func isEmpty[I any](eff Effect[I]) bool {
	if eff == nil {
		return true
	}
	_, ok := eff.(emptyEffect[I])
	return ok
}

// Just emits items in order, then completes.
func Just[I any](items ...I) Effect[I] {
	if len(items) == 0 {
		return Empty[I]()
	}
	return EffectFunc[I](func(ctx context.Context, emit func(I) bool) error {
		for _, item := range items {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !emit(item) {
				return nil
			}
		}
		return nil
	})
}

// FromChan emits everything received on ch until ch is closed.
func FromChan[I any](ch <-chan I) Effect[I] {
	return EffectFunc[I](func(ctx context.Context, emit func(I) bool) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case item, ok := <-ch:
				if !ok {
					return nil
				}
				if !emit(item) {
					return nil
				}
			}
		}
	})
}

// After waits d, then emits items in order. With d <= 0 it behaves like Just.
func After[I any](d time.Duration, items ...I) Effect[I] {
	if d <= 0 {
		return Just(items...)
	}
	return EffectFunc[I](func(ctx context.Context, emit func(I) bool) error {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		return Just(items...).Run(ctx, emit)
	})
}

// Every emits item once per interval until cancelled. It never completes on
// its own.
func Every[I any](interval time.Duration, item I) Effect[I] {
	return EffectFunc[I](func(ctx context.Context, emit func(I) bool) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if !emit(item) {
					return nil
				}
			}
		}
	})
}

// Fail emits items, then terminates with err.
func Fail[I any](err error, items ...I) Effect[I] {
	return EffectFunc[I](func(ctx context.Context, emit func(I) bool) error {
		if runErr := Just(items...).Run(ctx, emit); runErr != nil {
			return runErr
		}
		return err
	})
}
