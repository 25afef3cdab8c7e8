package testutil

import "github.com/roach88/automaton/internal/automaton"

// Reproducible returns the automaton options that make a run's Seq numbers
// and flow tokens depend only on input order: a fresh automaton.Clock, so
// the first reply is Seq 1, and a SequenceFlowGenerator with the given
// prefix.
//
// Call it once per run. The options hold their own counters, so sharing
// them between automata would interleave the numbering.
func Reproducible(flowPrefix string) []automaton.Option {
	return []automaton.Option{
		automaton.WithClock(automaton.NewClock()),
		automaton.WithFlowGenerator(NewSequenceFlowGenerator(flowPrefix)),
	}
}
