package automaton

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check("f"))
	}
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 3, q.MaxSpawns())
}

func TestQuotaEnforcer_Exceeded(t *testing.T) {
	q := NewQuotaEnforcer(1)
	require.NoError(t, q.Check("f"))

	err := q.Check("f")
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
	assert.True(t, IsQuotaError(fmt.Errorf("wrapped: %w", err)))
	assert.Contains(t, err.Error(), "2 spawns > 1 limit")

	var se *SpawnsExceededError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "f", se.FlowToken)
}

func TestQuotaEnforcer_Unlimited(t *testing.T) {
	q := NewQuotaEnforcer(0)
	for i := 0; i < 10000; i++ {
		require.NoError(t, q.Check("f"))
	}
}

func TestRuntimeError_Format(t *testing.T) {
	cause := fmt.Errorf("disk gone")

	src := &RuntimeError{Code: ErrCodeSourceFailed, Err: cause}
	assert.Equal(t, "SOURCE_FAILED: disk gone", src.Error())
	assert.True(t, IsSourceFault(src))
	assert.False(t, IsEffectFault(src))

	eff := &RuntimeError{Code: ErrCodeEffectFailed, FlowToken: "f1", CauseSeq: 4, Err: cause}
	assert.Equal(t, "EFFECT_FAILED: disk gone (flow=f1, cause=4)", eff.Error())
	assert.True(t, IsEffectFault(fmt.Errorf("run: %w", eff)))
	assert.ErrorIs(t, eff, cause)

	assert.False(t, IsEffectFault(cause))
	assert.False(t, IsQuotaError(cause))
}
