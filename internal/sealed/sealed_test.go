package sealed

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-similarity/internal/embeddings"
	"chat-similarity/internal/quantize"
)

func TestSealOpenRoundTrip(t *testing.T) {
	keys, err := NewKeys()
	require.NoError(t, err)

	values := quantize.QuantizeVector(embeddings.Vector{-1, -0.3, 0, 0.42, 1})
	cts, err := Seal(keys, values)
	require.NoError(t, err)
	require.Len(t, cts, len(values))

	got, err := Open(keys, cts)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestSealUsesFreshNonces(t *testing.T) {
	keys, err := KeysFrom(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	cts, err := Seal(keys, []uint16{1234, 1234})
	require.NoError(t, err)
	assert.NotEqual(t, cts[0], cts[1])
}

func TestOpenRejectsOtherKeys(t *testing.T) {
	a, err := KeysFrom(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	b, err := KeysFrom(bytes.Repeat([]byte{2}, 32))
	require.NoError(t, err)

	cts, err := Seal(a, []uint16{42})
	require.NoError(t, err)
	_, err = Open(b, cts)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestOpenRejectsTampering(t *testing.T) {
	keys, err := NewKeys()
	require.NoError(t, err)
	cts, err := Seal(keys, []uint16{42})
	require.NoError(t, err)

	cts[0][len(cts[0])-1] ^= 0xff
	_, err = Open(keys, cts)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = Open(keys, []Ciphertext{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestKeysFromRejectsShortKey(t *testing.T) {
	_, err := KeysFrom([]byte("short"))
	assert.Error(t, err)
}
