package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/automaton/internal/ir"
)

// Scenarios whose trace is fully ordered by their own timing. search_merge
// is excluded: its two lookups race.
var goldenScenarios = []string{
	"counter_increment_reset",
	"counter_decrement_rejected",
	"login_roundtrip",
	"login_force_logout",
	"search_latest",
}

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range goldenScenarios {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_OmitsToOnFailure(t *testing.T) {
	result := &Result{
		Scenario: "s",
		Machine:  "counter",
		Policy:   "merge",
		Trace: []TraceEvent{
			{Seq: 1, Flow: "flow-1", Input: "Decrement", Outcome: OutcomeFailure, From: ir.IRInt(0)},
		},
		FinalState: ir.IRInt(0),
	}

	b, err := ir.MarshalCanonical(result.Snapshot())
	require.NoError(t, err)
	assert.Equal(t,
		`{"final_state":0,"machine":"counter","policy":"merge","scenario_name":"s","trace":[{"cause":0,"flow":"flow-1","from":0,"input":"Decrement","outcome":"failure","seq":1}],"version":"1"}`,
		string(b),
	)
}

func TestTraceDigest_DiffersByTrace(t *testing.T) {
	a := &Result{Scenario: "s", Machine: "counter", Policy: "merge", FinalState: ir.IRInt(0)}
	b := &Result{Scenario: "s", Machine: "counter", Policy: "latest", FinalState: ir.IRInt(0)}

	da, err := TraceDigest(a)
	require.NoError(t, err)
	db, err := TraceDigest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}
