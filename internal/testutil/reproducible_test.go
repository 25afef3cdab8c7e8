package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/automaton/internal/automaton"
)

type tally struct {
	seq  int64
	flow string
}

// runSum feeds ns through a summing automaton and records each reply's stamps.
func runSum(t *testing.T, ns []int, opts ...automaton.Option) []tally {
	t.Helper()

	feed := automaton.NewFeed[int]()
	sum := func(s, in int) (int, bool) { return s + in, true }
	a := automaton.NewFromMapping(0, feed, sum, opts...)
	sub := a.Replies()
	a.Start(context.Background())
	defer a.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, n := range ns {
		require.NoError(t, feed.Send(ctx, n))
	}

	var got []tally
	for len(got) < len(ns) {
		select {
		case r := <-sub.C():
			got = append(got, tally{r.Seq, r.FlowToken})
		case <-ctx.Done():
			t.Fatal("timed out waiting for replies")
		}
	}
	return got
}

func TestReproducible_StampsRunFromOne(t *testing.T) {
	want := []tally{{1, "run-1"}, {2, "run-2"}, {3, "run-3"}}
	assert.Equal(t, want, runSum(t, []int{1, 2, 3}, Reproducible("run")...))
	assert.Equal(t, want, runSum(t, []int{1, 2, 3}, Reproducible("run")...), "a second run restarts numbering")
}

func TestReproducible_CallsDoNotShareCounters(t *testing.T) {
	first := Reproducible("x")
	second := Reproducible("x")

	assert.Equal(t, []tally{{1, "x-1"}, {2, "x-2"}}, runSum(t, []int{1, 2}, first...))
	assert.Equal(t, []tally{{1, "x-1"}}, runSum(t, []int{5}, second...))
}
