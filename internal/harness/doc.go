// Package harness runs YAML scenarios against the registered machines and
// checks the resulting reply trace.
//
// # Scenario Format
//
//	name: login_roundtrip
//	description: "Login completes through its effect"
//	machine: login
//	policy: merge            # or latest; default merge
//	effect_delay_ms: 5       # simulated effect latency; default 0
//	timeout_ms: 2000         # per-step wait limit; default 2000
//	steps:
//	  - send: Login
//	    await: 2             # replies to read after sending; default 1
//	    expect:
//	      outcome: success   # checked against the reply of the sent input
//	      to: LoggingIn
//	assertions:
//	  - type: reply_order
//	    inputs: [Login, LoginOK]
//	  - type: final_state
//	    state: LoggedIn
//
// # Assertion Types
//
//   - reply_count: replies (either outcome) for input, or all replies, equal count
//   - failure_count: failed replies for input, or all failures, equal count
//   - reply_order: inputs appear in this relative order
//   - final_state: the state after the last step equals state
//   - caused_by: every reply for input was caused by a reply for cause
//
// # Deterministic Testing
//
// Every run uses testutil.Reproducible: a fresh automaton.Clock and a
// testutil.SequenceFlowGenerator, so Seq values and flow tokens ("flow-1",
// "flow-2", ...) are identical across runs and traces can be compared
// byte for byte against golden files.
//
// # Validation
//
// LoadScenario checks a file in three passes: the embedded CUE schema, a
// strict YAML decode that rejects unknown fields, then semantic checks such
// as the machine name and per-assertion required fields.
package harness
