package automaton

// Mapping is a pure transition function. It returns the next state and true
// when the input is accepted in state, or false to reject it.
//
// Mappings must be deterministic and free of side effects.
type Mapping[S, I any] func(state S, input I) (S, bool)

// NextMapping is a pure transition function that may also return an Effect
// whose inputs are fed back into the automaton. A nil effect means none.
type NextMapping[S, I any] func(state S, input I) (S, Effect[I], bool)

// Lift turns a Mapping into a NextMapping that never spawns effects.
func Lift[S, I any](m Mapping[S, I]) NextMapping[S, I] {
	return func(state S, input I) (S, Effect[I], bool) {
		next, ok := m(state, input)
		if !ok {
			var zero S
			return zero, nil, false
		}
		return next, Empty[I](), true
	}
}

// Reply is the outcome record of one input.
//
// A successful Reply carries the state the input moved the automaton to; a
// failed one only records the state it was rejected in.
type Reply[S, I any] struct {
	Input I
	From  S

	// Seq is the logical clock stamp of this reply.
	Seq int64
	// FlowToken correlates an external input with every input its effects
	// produced.
	FlowToken string
	// CauseSeq is the Seq of the reply whose effect produced Input,
	// or 0 for external inputs.
	CauseSeq int64

	to S
	ok bool
}

// Succeeded builds a success reply.
func Succeeded[S, I any](input I, from, to S) Reply[S, I] {
	return Reply[S, I]{Input: input, From: from, to: to, ok: true}
}

// Failed builds a failure reply.
func Failed[S, I any](input I, from S) Reply[S, I] {
	return Reply[S, I]{Input: input, From: from}
}

// Success reports whether the transition was accepted.
func (r Reply[S, I]) Success() bool {
	return r.ok
}

// To returns the resulting state. ok is false for failure replies.
func (r Reply[S, I]) To() (to S, ok bool) {
	return r.to, r.ok
}

// stamp attaches provenance to a reply.
func (r Reply[S, I]) stamp(seq int64, flow string, cause int64) Reply[S, I] {
	r.Seq = seq
	r.FlowToken = flow
	r.CauseSeq = cause
	return r
}
