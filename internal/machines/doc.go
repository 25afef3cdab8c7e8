// Package machines holds the built-in example automata and a registry that
// exposes them through one string-typed interface.
//
// Each machine is written against the generic automaton API with its own
// state and input types. The registry adapts them to Machine and Session,
// which speak strings for inputs and ir.IRValue for states, so the harness
// and the CLI can drive any machine by name.
package machines
