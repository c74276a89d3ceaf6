package fingerprint

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/hupe1980/imgdedup/distance"
)

// Code is a fixed-width binary fingerprint.
// The zero value is an empty code of width 0.
type Code struct {
	bits int
	data []byte
}

// NewCode returns a code of the given bit width backed by a copy of data.
// data must hold exactly ceil(bits/8) bytes and its pad bits must be zero.
func NewCode(bits int, data []byte) (Code, error) {
	if bits <= 0 {
		return Code{}, fmt.Errorf("%w: bit width must be positive, got %d", ErrConfig, bits)
	}
	if len(data) != ByteLen(bits) {
		return Code{}, fmt.Errorf("%w: %d bits need %d bytes, got %d", ErrConfig, bits, ByteLen(bits), len(data))
	}
	if rem := bits % 8; rem != 0 && data[len(data)-1]&(0xFF>>rem) != 0 {
		return Code{}, fmt.Errorf("%w: pad bits must be zero", ErrConfig)
	}
	return Code{bits: bits, data: bytes.Clone(data)}, nil
}

// MustCode is like NewCode but panics on error. Intended for tests and
// constant tables.
func MustCode(bits int, data []byte) Code {
	c, err := NewCode(bits, data)
	if err != nil {
		panic(err)
	}
	return c
}

// FromBools packs a bit sequence MSB-first, zero padding the final byte.
func FromBools(bitsSeq []bool) Code {
	w := newBitWriter(len(bitsSeq))
	for _, b := range bitsSeq {
		w.write(b)
	}
	return Code{bits: len(bitsSeq), data: w.bytes()}
}

// ParseHex parses a hex string produced by Code.Hex.
func ParseHex(bits int, s string) (Code, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Code{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return NewCode(bits, data)
}

// ByteLen returns the number of bytes needed to pack bits.
func ByteLen(bits int) int {
	return (bits + 7) / 8
}

// Bits returns the bit width of the code.
func (c Code) Bits() int { return c.bits }

// Bytes returns the packed representation. The slice must not be modified.
func (c Code) Bytes() []byte { return c.data }

// IsZero reports whether c is the zero value.
func (c Code) IsZero() bool { return c.bits == 0 }

// Bit returns bit i, counting from the most significant bit of byte 0.
func (c Code) Bit(i int) bool {
	if i < 0 || i >= c.bits {
		return false
	}
	return c.data[i/8]&(0x80>>(i%8)) != 0
}

// Equal reports whether both codes have the same width and bits.
func (c Code) Equal(o Code) bool {
	return c.bits == o.bits && bytes.Equal(c.data, o.data)
}

// Hex returns the packed bytes as lowercase hex.
func (c Code) Hex() string { return hex.EncodeToString(c.data) }

func (c Code) String() string {
	return fmt.Sprintf("%d:%s", c.bits, c.Hex())
}

// Hamming returns the number of differing bits between a and b.
func Hamming(a, b Code) (int, error) {
	if a.bits != b.bits {
		return 0, &ErrDimensionMismatch{Expected: a.bits, Actual: b.bits}
	}
	return distance.Hamming(a.data, b.data), nil
}

// bitWriter packs bits MSB-first.
type bitWriter struct {
	buf []byte
	n   int
}

func newBitWriter(bits int) *bitWriter {
	return &bitWriter{buf: make([]byte, ByteLen(bits))}
}

func (w *bitWriter) write(bit bool) {
	if bit {
		w.buf[w.n/8] |= 0x80 >> (w.n % 8)
	}
	w.n++
}

func (w *bitWriter) bytes() []byte { return w.buf }
