package automaton

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts the effect streams one flow has started and refuses
// new ones past a limit.
//
// This bounds runaway recursion where every effect input spawns another
// effect (A → B → C → ...). An infinite effect such as Every counts once.
// A limit of 0 or less means unlimited.
type QuotaEnforcer struct {
	maxSpawns int
	current   int
}

// NewQuotaEnforcer creates an enforcer with the given limit.
func NewQuotaEnforcer(maxSpawns int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSpawns: maxSpawns}
}

// Check counts one spawn and returns *SpawnsExceededError once the limit is
// passed.
func (q *QuotaEnforcer) Check(flowToken string) error {
	q.current++
	if q.maxSpawns > 0 && q.current > q.maxSpawns {
		return &SpawnsExceededError{
			FlowToken: flowToken,
			Spawns:    q.current,
			Limit:     q.maxSpawns,
		}
	}
	return nil
}

// Current returns the number of spawns counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSpawns returns the configured limit.
func (q *QuotaEnforcer) MaxSpawns() int {
	return q.maxSpawns
}

// SpawnsExceededError reports a flow that tried to start more effects than
// allowed. The transition itself still succeeds; only the effect is skipped.
type SpawnsExceededError struct {
	FlowToken string
	Spawns    int
	Limit     int
}

// Error implements the error interface.
func (e *SpawnsExceededError) Error() string {
	return fmt.Sprintf("flow %s exceeded effect spawn quota: %d spawns > %d limit",
		e.FlowToken, e.Spawns, e.Limit)
}

// IsQuotaError reports whether err is, or wraps, a *SpawnsExceededError.
func IsQuotaError(err error) bool {
	var se *SpawnsExceededError
	return errors.As(err, &se)
}
