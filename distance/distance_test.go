package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHamming(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []byte
		expected int
	}{
		{"Empty", []byte{}, []byte{}, 0},
		{"Identical", []byte{0xAB, 0xCD}, []byte{0xAB, 0xCD}, 0},
		{"SingleBit", []byte{0x01}, []byte{0x00}, 1},
		{"AllBits", []byte{0xFF, 0xFF}, []byte{0x00, 0x00}, 16},
		{"WordAndTail", []byte{0xFF, 0, 0, 0, 0, 0, 0, 0, 0x0F}, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0}, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Hamming(tt.a, tt.b))
			assert.Equal(t, tt.expected, Hamming(tt.b, tt.a))
		})
	}
}

func TestHammingLarge(t *testing.T) {
	a := make([]byte, 32)
	b := make([]byte, 32)
	for i := range a {
		a[i] = 0xFF
	}
	assert.Equal(t, 256, Hamming(a, b))
	assert.Equal(t, 0, Hamming(a, a))
}

func TestHammingWithin(t *testing.T) {
	a := make([]byte, 32)
	b := make([]byte, 32)
	b[0] = 0x0F
	b[20] = 0x01

	d, ok := HammingWithin(a, b, 5)
	assert.True(t, ok)
	assert.Equal(t, 5, d)

	_, ok = HammingWithin(a, b, 4)
	assert.False(t, ok)

	_, ok = HammingWithin(a, a, -1)
	assert.False(t, ok)
}
