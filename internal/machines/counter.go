package machines

import (
	"github.com/roach88/automaton/internal/automaton"
	"github.com/roach88/automaton/internal/ir"
)

// CounterInput is an input of the counter machine.
type CounterInput string

const (
	Increment CounterInput = "Increment"
	Decrement CounterInput = "Decrement"
	Reset     CounterInput = "Reset"
)

// CounterMapping counts up and down. Decrement is rejected at 0.
func CounterMapping(state int, in CounterInput) (int, bool) {
	switch in {
	case Increment:
		return state + 1, true
	case Decrement:
		if state == 0 {
			return state, false
		}
		return state - 1, true
	case Reset:
		return 0, true
	default:
		return state, false
	}
}

// NewCounter returns the counter machine. It never spawns effects, so opts
// is unused.
func NewCounter(Options) Machine {
	return &definition[int, CounterInput]{
		name:        "counter",
		description: "integer counter; Decrement is rejected at zero",
		inputs:      []string{string(Increment), string(Decrement), string(Reset)},
		initial:     0,
		next:        automaton.Lift(CounterMapping),
		parse:       parseEnum("counter", Increment, Decrement, Reset),
		format:      formatString[CounterInput],
		encode:      func(s int) ir.IRValue { return ir.IRInt(s) },
	}
}
