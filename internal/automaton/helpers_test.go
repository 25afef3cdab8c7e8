package automaton

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/automaton/internal/broadcast"
)

const testTimeout = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// logBuffer is a goroutine-safe sink for a debug-level test logger.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *logBuffer) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(b, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// runAsync starts a.Run and returns a channel carrying its result.
func runAsync[S, I any](ctx context.Context, a *Automaton[S, I]) <-chan error {
	errc := make(chan error, 1)
	go func() {
		errc <- a.Run(ctx)
	}()
	return errc
}

// next receives one value or fails the test.
func next[T any](t *testing.T, sub *broadcast.Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "stream completed early")
		return v
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

// collect receives n values.
func collect[T any](t *testing.T, sub *broadcast.Subscription[T], n int) []T {
	t.Helper()
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, next(t, sub))
	}
	return out
}

// drain receives until the stream completes.
func drain[T any](t *testing.T, sub *broadcast.Subscription[T]) []T {
	t.Helper()
	var out []T
	for {
		select {
		case v, ok := <-sub.C():
			if !ok {
				return out
			}
			out = append(out, v)
		case <-time.After(testTimeout):
			t.Fatal("stream did not complete")
			return out
		}
	}
}

func waitErr(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(testTimeout):
		t.Fatal("Run did not return")
		return nil
	}
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(testTimeout):
		t.Fatalf("%s was not closed", what)
	}
}

func inputs[S, I any](replies []Reply[S, I]) []I {
	out := make([]I, len(replies))
	for i, r := range replies {
		out[i] = r.Input
	}
	return out
}
