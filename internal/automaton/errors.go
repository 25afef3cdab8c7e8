package automaton

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by Run when the automaton is already
	// running or has run before.
	ErrAlreadyStarted = errors.New("automaton already started")

	// ErrDisposed is returned by Run when Dispose was called first.
	ErrDisposed = errors.New("automaton disposed")
)

// RuntimeErrorCode categorizes terminal faults.
type RuntimeErrorCode string

const (
	// ErrCodeSourceFailed means the external input source returned an error.
	ErrCodeSourceFailed RuntimeErrorCode = "SOURCE_FAILED"

	// ErrCodeEffectFailed means an effect stream returned an error.
	ErrCodeEffectFailed RuntimeErrorCode = "EFFECT_FAILED"
)

// RuntimeError is the terminal fault that stopped an automaton.
//
// All producers share one merged stream, so a fault anywhere ends the whole
// reply stream. FlowToken and CauseSeq identify the transition that spawned
// the failing effect; both are empty for source faults.
type RuntimeError struct {
	Code      RuntimeErrorCode
	FlowToken string
	CauseSeq  int64
	Err       error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.FlowToken != "" {
		return fmt.Sprintf("%s: %v (flow=%s, cause=%d)", e.Code, e.Err, e.FlowToken, e.CauseSeq)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap returns the producer's error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsSourceFault reports whether err is a source failure.
func IsSourceFault(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeSourceFailed
	}
	return false
}

// IsEffectFault reports whether err is an effect failure.
func IsEffectFault(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeEffectFailed
	}
	return false
}
