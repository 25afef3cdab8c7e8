package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/automaton/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It carries the trace so failures can be read without rerunning.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s", event.Seq, event.Flow, event.Input, event.Outcome)
		if event.Cause != 0 {
			fmt.Fprintf(&buf, " (cause %d)", event.Cause)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// assertReplyCount counts replies for an input, or all replies when input
// is empty. With failuresOnly, only failed replies count.
func assertReplyCount(trace []TraceEvent, a Assertion, failuresOnly bool) error {
	count := 0
	for _, event := range trace {
		if a.Input != "" && event.Input != a.Input {
			continue
		}
		if failuresOnly && event.Succeeded() {
			continue
		}
		count++
	}

	if count == *a.Count {
		return nil
	}

	what := "replies"
	if failuresOnly {
		what = "failures"
	}
	if a.Input != "" {
		what += " for " + a.Input
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d %s", *a.Count, what),
		Actual:   fmt.Sprintf("%d %s", count, what),
		Trace:    trace,
	}
}

// assertReplyOrder checks that inputs appear in the given relative order.
// Other replies may be interleaved.
func assertReplyOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Inputs) && event.Input == a.Inputs[next] {
			next++
		}
	}
	if next == len(a.Inputs) {
		return nil
	}

	return &AssertionError{
		Type:     AssertReplyOrder,
		Expected: fmt.Sprintf("inputs in order %v", a.Inputs),
		Actual:   fmt.Sprintf("%q not found after %v", a.Inputs[next], a.Inputs[:next]),
		Trace:    trace,
	}
}

// assertFinalState compares the state after the last step.
func assertFinalState(result *Result, a Assertion) error {
	want, err := ir.FromAny(a.State)
	if err != nil {
		return fmt.Errorf("final_state: invalid expected state: %w", err)
	}
	if ir.Equal(want, result.FinalState) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: ir.String(want),
		Actual:   ir.String(result.FinalState),
		Trace:    result.Trace,
	}
}

// assertCausedBy checks that every reply for a.Input was produced by an
// effect of a reply for a.Cause. At least one reply for a.Input must exist.
func assertCausedBy(trace []TraceEvent, a Assertion) error {
	bySeq := make(map[int64]TraceEvent, len(trace))
	for _, event := range trace {
		bySeq[event.Seq] = event
	}

	matched := 0
	for _, event := range trace {
		if event.Input != a.Input {
			continue
		}
		matched++

		cause, ok := bySeq[event.Cause]
		if event.Cause == 0 || !ok || cause.Input != a.Cause {
			actual := "an external input"
			if event.Cause != 0 {
				actual = fmt.Sprintf("cause seq %d", event.Cause)
				if ok {
					actual += " (" + cause.Input + ")"
				}
			}
			return &AssertionError{
				Type:     AssertCausedBy,
				Expected: fmt.Sprintf("%s (seq %d) caused by %s", a.Input, event.Seq, a.Cause),
				Actual:   actual,
				Trace:    trace,
			}
		}
		if cause.Flow != event.Flow {
			return &AssertionError{
				Type:     AssertCausedBy,
				Expected: fmt.Sprintf("%s (seq %d) in flow %s", a.Input, event.Seq, cause.Flow),
				Actual:   "flow " + event.Flow,
				Trace:    trace,
			}
		}
	}

	if matched == 0 {
		return &AssertionError{
			Type:     AssertCausedBy,
			Expected: fmt.Sprintf("at least one reply for %s", a.Input),
			Actual:   "none",
			Trace:    trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertReplyCount, AssertFailureCount:
			if a.Count == nil {
				err = fmt.Errorf("assertion[%d]: %s requires count", i, a.Type)
				break
			}
			err = assertReplyCount(result.Trace, a, a.Type == AssertFailureCount)
		case AssertReplyOrder:
			err = assertReplyOrder(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		case AssertCausedBy:
			err = assertCausedBy(result.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
