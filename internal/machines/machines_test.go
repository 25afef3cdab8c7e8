package machines

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/automaton/internal/automaton"
	"github.com/roach88/automaton/internal/ir"
	"github.com/roach88/automaton/internal/testutil"
)

const testTimeout = 2 * time.Second

func testOptions(policy automaton.FlattenPolicy) []automaton.Option {
	return append(testutil.Reproducible("flow"),
		automaton.WithPolicy(policy),
		automaton.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// await reads n records or fails the test.
func await(t *testing.T, s Session, n int) []Record {
	t.Helper()
	var got []Record
	for len(got) < n {
		select {
		case rec, ok := <-s.Records():
			require.True(t, ok, "records closed after %d of %d", len(got), n)
			got = append(got, rec)
		case <-time.After(testTimeout):
			t.Fatalf("timed out after %d of %d records", len(got), n)
		}
	}
	return got
}

func TestCounterMapping(t *testing.T) {
	tests := []struct {
		state int
		in    CounterInput
		want  int
		ok    bool
	}{
		{0, Increment, 1, true},
		{3, Decrement, 2, true},
		{0, Decrement, 0, false},
		{5, Reset, 0, true},
		{5, CounterInput("Double"), 5, false},
	}

	for _, tt := range tests {
		got, ok := CounterMapping(tt.state, tt.in)
		assert.Equal(t, tt.ok, ok, "%d + %s", tt.state, tt.in)
		if ok {
			assert.Equal(t, tt.want, got, "%d + %s", tt.state, tt.in)
		}
	}
}

func TestLoginMapping(t *testing.T) {
	next := LoginMapping(0)

	tests := []struct {
		state  LoginState
		in     LoginInput
		want   LoginState
		ok     bool
		effect bool
	}{
		{LoggedOut, Login, LoggingIn, true, true},
		{LoggingIn, LoginOK, LoggedIn, true, false},
		{LoggedIn, Logout, LoggingOut, true, true},
		{LoggingOut, LogoutOK, LoggedOut, true, false},
		{LoggingIn, ForceLogout, LoggingOut, true, true},
		{LoggedIn, ForceLogout, LoggingOut, true, true},
		{LoggedOut, ForceLogout, LoggedOut, false, false},
		{LoggedOut, Logout, LoggedOut, false, false},
		{LoggedIn, Login, LoggedIn, false, false},
		{LoggedOut, LoginOK, LoggedOut, false, false},
	}

	for _, tt := range tests {
		got, eff, ok := next(tt.state, tt.in)
		assert.Equal(t, tt.ok, ok, "%s + %s", tt.state, tt.in)
		if !ok {
			continue
		}
		assert.Equal(t, tt.want, got, "%s + %s", tt.state, tt.in)
		assert.Equal(t, tt.effect, eff != nil, "%s + %s effect", tt.state, tt.in)
	}
}

func TestParseSearchInput(t *testing.T) {
	in, err := ParseSearchInput("Query:go")
	require.NoError(t, err)
	assert.Equal(t, SearchInput{Kind: SearchQuery, Text: "go"}, in)
	assert.Equal(t, "Query:go", in.String())

	in, err = ParseSearchInput("Found:a:b")
	require.NoError(t, err)
	assert.Equal(t, "a:b", in.Text)

	in, err = ParseSearchInput("Clear")
	require.NoError(t, err)
	assert.Equal(t, "Clear", in.String())

	for _, bad := range []string{"", "Query:", "Find:x", "clear"} {
		_, err := ParseSearchInput(bad)
		assert.ErrorIs(t, err, ErrUnknownInput, bad)
	}
}

func TestSearchMapping(t *testing.T) {
	next := SearchMapping(0)
	idle := SearchState{Phase: SearchIdle}

	searching, eff, ok := next(idle, SearchInput{Kind: SearchQuery, Text: "cat"})
	require.True(t, ok)
	assert.Equal(t, SearchState{Phase: SearchSearching, Query: "cat"}, searching)
	assert.NotNil(t, eff)

	_, _, ok = next(searching, SearchInput{Kind: SearchFound, Text: "ca"})
	assert.False(t, ok, "stale result must be rejected")

	done, _, ok := next(searching, SearchInput{Kind: SearchFound, Text: "cat"})
	require.True(t, ok)
	assert.Equal(t, SearchState{Phase: SearchDone, Query: "cat", Hits: 3}, done)

	_, _, ok = next(idle, SearchInput{Kind: SearchClear})
	assert.False(t, ok)

	cleared, _, ok := next(done, SearchInput{Kind: SearchClear})
	require.True(t, ok)
	assert.Equal(t, idle, cleared)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"counter", "login", "search"}, Names())

	m, err := Lookup("login", Options{})
	require.NoError(t, err)
	assert.Equal(t, "login", m.Name())
	assert.Equal(t, ir.IRString("LoggedOut"), m.Initial())
	assert.NotEmpty(t, m.Description())
	assert.Contains(t, m.Inputs(), "ForceLogout")

	_, err = Lookup("toaster", Options{})
	assert.ErrorIs(t, err, ErrUnknownMachine)
}

func TestSession_Counter(t *testing.T) {
	m, err := Lookup("counter", Options{})
	require.NoError(t, err)

	ctx := context.Background()
	s := m.Start(ctx, testOptions(automaton.Merge)...)
	defer s.Close()

	for _, in := range []string{"Increment", "Increment", "Decrement", "Reset", "Decrement"} {
		require.NoError(t, s.Send(ctx, in))
	}
	got := await(t, s, 5)

	assert.Equal(t, Record{Seq: 1, Flow: "flow-1", Input: "Increment", From: ir.IRInt(0), To: ir.IRInt(1), Success: true}, got[0])
	assert.Equal(t, Record{Seq: 5, Flow: "flow-5", Input: "Decrement", From: ir.IRInt(0)}, got[4])
	assert.Equal(t, ir.IRInt(0), s.State())

	assert.ErrorIs(t, s.Send(ctx, "Double"), ErrUnknownInput)
}

func TestSession_LoginEffectsCarryCause(t *testing.T) {
	m, err := Lookup("login", Options{EffectDelay: time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	s := m.Start(ctx, testOptions(automaton.Merge)...)
	defer s.Close()

	require.NoError(t, s.Send(ctx, "Login"))
	got := await(t, s, 2)

	assert.Equal(t, "Login", got[0].Input)
	assert.Equal(t, "LoginOK", got[1].Input)
	assert.Equal(t, got[0].Flow, got[1].Flow)
	assert.Equal(t, got[0].Seq, got[1].Cause)
	assert.Equal(t, ir.IRString("LoggedIn"), got[1].To)
}

func TestSession_SearchLatestDropsStaleLookup(t *testing.T) {
	m, err := Lookup("search", Options{EffectDelay: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	s := m.Start(ctx, testOptions(automaton.Latest)...)
	defer s.Close()

	require.NoError(t, s.Send(ctx, "Query:c"))
	require.NoError(t, s.Send(ctx, "Query:cat"))
	got := await(t, s, 3)

	assert.Equal(t, "Found:cat", got[2].Input)
	assert.True(t, got[2].Success)
	assert.Equal(t, int64(2), got[2].Cause)

	select {
	case rec := <-s.Records():
		t.Fatalf("unexpected record %+v", rec)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSession_CloseInputCompletesNaturally(t *testing.T) {
	m, err := Lookup("login", Options{EffectDelay: time.Millisecond})
	require.NoError(t, err)

	ctx := context.Background()
	s := m.Start(ctx, testOptions(automaton.Merge)...)

	require.NoError(t, s.Send(ctx, "Login"))
	s.CloseInput()

	got := await(t, s, 2)
	assert.Equal(t, "LoginOK", got[1].Input)

	select {
	case <-s.Done():
	case <-time.After(testTimeout):
		t.Fatal("session did not complete")
	}
	assert.NoError(t, s.Err())
	assert.ErrorIs(t, s.Send(ctx, "Logout"), ErrSessionClosed)
}

func TestSession_CloseCancelsPendingEffects(t *testing.T) {
	m, err := Lookup("login", Options{EffectDelay: time.Hour})
	require.NoError(t, err)

	ctx := context.Background()
	s := m.Start(ctx, testOptions(automaton.Merge)...)

	require.NoError(t, s.Send(ctx, "Login"))
	await(t, s, 1)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "Close is idempotent")
	assert.ErrorIs(t, s.Send(ctx, "Logout"), ErrSessionClosed)
	assert.Equal(t, ir.IRString("LoggingIn"), s.State())
}
