package harness

import "github.com/roach88/automaton/internal/ir"

// Outcome values of a reply.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// TraceEvent is one reply as recorded by the harness.
type TraceEvent struct {
	Seq     int64
	Flow    string
	Cause   int64
	Input   string
	Outcome string
	From    ir.IRValue
	To      ir.IRValue // nil for failures
}

// Succeeded reports whether the reply was a success.
func (e TraceEvent) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}

// Canonical renders the event for golden files and digests.
func (e TraceEvent) Canonical() ir.IRObject {
	obj := ir.IRObject{
		"seq":     ir.IRInt(e.Seq),
		"flow":    ir.IRString(e.Flow),
		"cause":   ir.IRInt(e.Cause),
		"input":   ir.IRString(e.Input),
		"outcome": ir.IRString(e.Outcome),
		"from":    e.From,
	}
	if e.To != nil {
		obj["to"] = e.To
	}
	return obj
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string
	Machine  string
	Policy   string

	// Pass is true when every expect clause and assertion held.
	Pass bool

	// Trace holds every reply read during the run, in Seq order.
	Trace []TraceEvent

	// FinalState is the machine state after the last step.
	FinalState ir.IRValue

	// Errors describes each failed check. Empty when Pass is true.
	Errors []string
}

// NewResult creates a passing result for a scenario.
func NewResult(s *Scenario) *Result {
	return &Result{
		Scenario: s.Name,
		Machine:  s.Machine,
		Policy:   s.policy(),
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError records a failed check and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Snapshot renders the result as the canonical trace document used by
// golden files and TraceDigest.
func (r *Result) Snapshot() ir.IRObject {
	trace := make(ir.IRArray, len(r.Trace))
	for i, e := range r.Trace {
		trace[i] = e.Canonical()
	}

	obj := ir.IRObject{
		"version":       ir.IRString(ir.TraceVersion),
		"scenario_name": ir.IRString(r.Scenario),
		"machine":       ir.IRString(r.Machine),
		"policy":        ir.IRString(r.Policy),
		"trace":         trace,
	}
	if r.FinalState != nil {
		obj["final_state"] = r.FinalState
	}
	return obj
}
