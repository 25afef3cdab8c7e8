package ir

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() IRObject {
	return IRObject{
		"machine": IRString("counter"),
		"trace": IRArray{
			IRObject{"seq": IRInt(1), "input": IRString("Increment"), "from": IRInt(0), "to": IRInt(1)},
		},
	}
}

func TestTraceDigestDeterminism(t *testing.T) {
	a, err := TraceDigest(sampleTrace())
	require.NoError(t, err)
	b, err := TraceDigest(sampleTrace())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTraceDigestChangesWithContent(t *testing.T) {
	base, err := TraceDigest(sampleTrace())
	require.NoError(t, err)

	changed := sampleTrace()
	changed["machine"] = IRString("login")
	other, err := TraceDigest(changed)
	require.NoError(t, err)

	assert.NotEqual(t, base, other)
}

func TestDomainSeparation(t *testing.T) {
	state := IRObject{"machine": IRString("counter")}

	trace, err := TraceDigest(state)
	require.NoError(t, err)
	single, err := StateDigest(state)
	require.NoError(t, err)

	assert.NotEqual(t, trace, single, "same content under different domains must differ")
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + "c" must not collide with "a" + "bc".
	assert.NotEqual(t,
		hashWithDomain("ab", []byte("c")),
		hashWithDomain("a", []byte("bc")),
	)
}

func TestDigestHexEncoding(t *testing.T) {
	d, err := StateDigest(IRInt(1))
	require.NoError(t, err)

	assert.Len(t, d, 64)
	_, err = hex.DecodeString(d)
	assert.NoError(t, err)
}

func TestDigestErrors(t *testing.T) {
	_, err := TraceDigest(IRObject{"bad": nil})
	assert.Error(t, err)

	_, err = StateDigest(nil)
	assert.Error(t, err)
}
