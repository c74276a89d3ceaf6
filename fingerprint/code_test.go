package fingerprint_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgdedup/fingerprint"
	"github.com/hupe1980/imgdedup/testutil"
)

func TestNewCode(t *testing.T) {
	tests := []struct {
		name    string
		bits    int
		data    []byte
		wantErr bool
	}{
		{"full bytes", 16, []byte{0xFF, 0x00}, false},
		{"padded", 12, []byte{0xAB, 0xC0}, false},
		{"pad bits set", 12, []byte{0xAB, 0xC1}, true},
		{"short", 16, []byte{0xFF}, true},
		{"long", 8, []byte{0xFF, 0x00}, true},
		{"zero width", 0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := fingerprint.NewCode(tt.bits, tt.data)
			if tt.wantErr {
				require.ErrorIs(t, err, fingerprint.ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bits, c.Bits())
			assert.Equal(t, tt.data, c.Bytes())
		})
	}
}

func TestNewCode_CopiesInput(t *testing.T) {
	data := []byte{0x0F}
	c := fingerprint.MustCode(8, data)
	data[0] = 0xF0
	assert.Equal(t, []byte{0x0F}, c.Bytes())
}

func TestFromBools(t *testing.T) {
	c := fingerprint.FromBools([]bool{true, false, true, true, false, false, false, false, true})
	assert.Equal(t, 9, c.Bits())
	assert.Equal(t, []byte{0xB0, 0x80}, c.Bytes())
	assert.True(t, c.Bit(0))
	assert.False(t, c.Bit(1))
	assert.True(t, c.Bit(8))
	assert.False(t, c.Bit(9))
}

func TestHexRoundTrip(t *testing.T) {
	rng := testutil.NewRNG(3)
	c := fingerprint.MustCode(144, rng.PackedCode(144))

	parsed, err := fingerprint.ParseHex(144, c.Hex())
	require.NoError(t, err)
	assert.True(t, c.Equal(parsed))

	_, err = fingerprint.ParseHex(144, "zz")
	assert.ErrorIs(t, err, fingerprint.ErrConfig)
}

func TestHamming_Properties(t *testing.T) {
	rng := testutil.NewRNG(11)
	for _, bits := range []int{64, 144, 256, 100} {
		a := fingerprint.MustCode(bits, rng.PackedCode(bits))
		b := fingerprint.MustCode(bits, rng.PackedCode(bits))

		d, err := fingerprint.Hamming(a, a)
		require.NoError(t, err)
		assert.Zero(t, d, "identity")

		ab, err := fingerprint.Hamming(a, b)
		require.NoError(t, err)
		ba, err := fingerprint.Hamming(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba, "symmetry")
		assert.LessOrEqual(t, ab, bits)

		flipped := fingerprint.MustCode(bits, rng.FlipBits(a.Bytes(), bits, 7))
		d, err = fingerprint.Hamming(a, flipped)
		require.NoError(t, err)
		assert.Equal(t, 7, d)
	}
}

func TestHamming_DimensionMismatch(t *testing.T) {
	a := fingerprint.MustCode(16, []byte{0, 0})
	b := fingerprint.MustCode(8, []byte{0})

	_, err := fingerprint.Hamming(a, b)

	var dm *fingerprint.ErrDimensionMismatch
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 16, dm.Expected)
	assert.Equal(t, 8, dm.Actual)
}
