package fingerprint_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgdedup/fingerprint"
	"github.com/hupe1980/imgdedup/testutil"
)

func TestNewContentHash(t *testing.T) {
	h, err := fingerprint.NewContentHash(fingerprint.ContentBits)
	require.NoError(t, err)
	assert.Equal(t, 144, h.BitWidth())

	for _, bits := range []int{0, 128, 256} {
		_, err := fingerprint.NewContentHash(bits)
		assert.ErrorIs(t, err, fingerprint.ErrConfig)
	}
}

func TestContentHash_KnownDigests(t *testing.T) {
	h, err := fingerprint.NewContentHash(fingerprint.ContentBits)
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"", "ab70a4f037332b48992736c9c8835c4e4972"},        // 255 significant bits
		{"abc", "ad1500f261ff10b49c7a1796a36103b02322"},     // 256 significant bits
		{"imgdedup", "9cade065056be24f8bb66f13210a8d35d4f2"}, // 254 significant bits
	}
	for _, tt := range tests {
		c, err := h.Compute(bytes.NewReader([]byte(tt.in)))
		require.NoError(t, err)
		assert.Equal(t, 144, c.Bits())
		assert.Equal(t, tt.want, c.Hex(), "input %q", tt.in)
	}
}

func TestContentHash_ExactMatchOnly(t *testing.T) {
	rng := testutil.NewRNG(9)
	blob := rng.Bytes(200 << 10)

	h, err := fingerprint.NewContentHash(fingerprint.ContentBits)
	require.NoError(t, err)

	a, err := h.Compute(bytes.NewReader(blob))
	require.NoError(t, err)
	b, err := h.Compute(bytes.NewReader(bytes.Clone(blob)))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	blob[len(blob)-1] ^= 1
	c, err := h.Compute(bytes.NewReader(blob))
	require.NoError(t, err)
	dist, err := fingerprint.Hamming(a, c)
	require.NoError(t, err)
	assert.Positive(t, dist)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestContentHash_ReadError(t *testing.T) {
	h, err := fingerprint.NewContentHash(fingerprint.ContentBits)
	require.NoError(t, err)

	_, err = h.Compute(failingReader{})
	assert.ErrorIs(t, err, fingerprint.ErrDecode)
}
