package cbor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	B     []byte
	Tags  map[uint8][]byte
	Epoch *uint8 `cbor:",omitempty"`
}

func TestDeterministicMaps(t *testing.T) {
	a := sample{Tags: map[uint8][]byte{3: {1}, 1: {2}, 2: {3}}}
	first, err := Marshal(a)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(a)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}

	var b sample
	require.NoError(t, Unmarshal(first, &b))
	require.Equal(t, a.Tags, b.Tags)
	require.Nil(t, b.Epoch)
}

func TestRejectDuplicateKeys(t *testing.T) {
	// {1: h'', 1: h''}
	dup := []byte{0xa2, 0x01, 0x40, 0x01, 0x40}
	var m map[uint8][]byte
	require.Error(t, Unmarshal(dup, &m))
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	epoch := uint8(7)
	require.NoError(t, NewEncoder(&buf).Encode(sample{B: []byte("x"), Epoch: &epoch}))

	var s sample
	require.NoError(t, NewDecoder(&buf).Decode(&s))
	require.Equal(t, []byte("x"), s.B)
	require.Equal(t, uint8(7), *s.Epoch)
}
