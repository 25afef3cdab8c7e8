// Package automaton implements a deterministic state-transition engine with
// recursive effect feedback.
//
// An Automaton is built from an initial state, an input source and a
// transition function. Each input is evaluated against the current state;
// a successful transition updates the state and may return an Effect, an
// asynchronous stream of further inputs that is folded back into the same
// pipeline. Every input, external or effect-spawned, receives exactly one
// Reply.
//
// ARCHITECTURE:
//
// Single-Owner Run Loop:
// One goroutine (Run) owns the state, the scope tree of running effects, the
// logical clock and reply publication. Producers (the input source and every
// effect) run in their own goroutines and push into one shared FIFO queue.
//
// Event Processing Flow:
//  1. A producer emits an input; it is enqueued with the scope it came from
//  2. Run dequeues it, drops it if its scope was cancelled
//  3. The transition function is evaluated once against the current state
//  4. Failure: a failure Reply is published, nothing else happens
//  5. Success: under the Latest policy the previous derived stream at the
//     same level is cancelled; the state is updated and the Reply published;
//     then the returned effect starts as a child scope
//
// Causal ordering falls out of step 5: a trigger's Reply is published before
// its effect goroutine exists.
//
// Flow tokens: each external input gets a fresh token from the
// FlowTokenGenerator. Inputs produced by effects inherit the token of the
// transition that spawned them, recursively, and carry its Seq as CauseSeq.
//
// Faults: an error from the source or from a live effect tears the whole
// automaton down (strict propagation) unless WithEffectFaultIsolation is set.
package automaton
