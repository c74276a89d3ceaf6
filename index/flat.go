package index

import (
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/imgdedup/distance"
	"github.com/hupe1980/imgdedup/fingerprint"
)

// Flat is an exhaustive binary index.
//
// Flat is safe for concurrent use. Searches run under a read lock and may
// proceed in parallel.
type Flat struct {
	mu       sync.RWMutex
	bitWidth int
	codeSize int
	codes    []byte // len(labels) * codeSize
	labels   []string
}

// NewFlat creates an empty index for codes of bitWidth bits.
func NewFlat(bitWidth int) (*Flat, error) {
	if bitWidth <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBitWidth, bitWidth)
	}
	return &Flat{
		bitWidth: bitWidth,
		codeSize: fingerprint.ByteLen(bitWidth),
	}, nil
}

// FromPacked builds an index from codes packed back to back, one label per
// code. The slices are copied. Every code must leave its pad bits zero.
func FromPacked(bitWidth int, codes []byte, labels []string) (*Flat, error) {
	f, err := NewFlat(bitWidth)
	if err != nil {
		return nil, err
	}
	if len(codes) != len(labels)*f.codeSize {
		return nil, fmt.Errorf("index: %d code bytes do not hold %d codes of %d bytes", len(codes), len(labels), f.codeSize)
	}
	if rem := bitWidth % 8; rem != 0 {
		mask := byte(0xFF >> rem)
		for i := f.codeSize - 1; i < len(codes); i += f.codeSize {
			if codes[i]&mask != 0 {
				return nil, fmt.Errorf("%w: code %d", ErrNonZeroPadding, i/f.codeSize)
			}
		}
	}
	f.codes = slices.Clone(codes)
	f.labels = slices.Clone(labels)
	return f, nil
}

// BitWidth returns the code width in bits.
func (f *Flat) BitWidth() int { return f.bitWidth }

// CodeSize returns the packed code size in bytes.
func (f *Flat) CodeSize() int { return f.codeSize }

// Len returns the number of stored codes.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.labels)
}

// Insert appends code and returns its sequence ID.
func (f *Flat) Insert(code fingerprint.Code, label string) (uint64, error) {
	if code.Bits() != f.bitWidth {
		return 0, &ErrDimensionMismatch{Expected: f.bitWidth, Actual: code.Bits()}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := uint64(len(f.labels))
	f.codes = append(f.codes, code.Bytes()...)
	f.labels = append(f.labels, label)
	return id, nil
}

// RangeSearch returns every stored code within threshold bits of query,
// inclusive.
func (f *Flat) RangeSearch(query fingerprint.Code, threshold int) (*Result, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}
	if query.Bits() != f.bitWidth {
		return nil, &ErrDimensionMismatch{Expected: f.bitWidth, Actual: query.Bits()}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	q := query.Bytes()
	res := newResult()
	for i := range f.labels {
		off := i * f.codeSize
		if d, ok := distance.HammingWithin(q, f.codes[off:off+f.codeSize], threshold); ok {
			res.add(Match{ID: uint64(i), Label: f.labels[i], Distance: d})
		}
	}
	return res, nil
}

// Code returns the code stored under id.
func (f *Flat) Code(id uint64) (fingerprint.Code, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if id >= uint64(len(f.labels)) {
		return fingerprint.Code{}, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	off := int(id) * f.codeSize
	return fingerprint.NewCode(f.bitWidth, f.codes[off:off+f.codeSize])
}

// Label returns the label stored under id.
func (f *Flat) Label(id uint64) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if id >= uint64(len(f.labels)) {
		return "", fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	return f.labels[id], nil
}

// Packed returns copies of the packed codes and labels, suitable for
// FromPacked.
func (f *Flat) Packed() ([]byte, []string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.codes), slices.Clone(f.labels)
}

// Clone returns a deep copy.
func (f *Flat) Clone() *Flat {
	codes, labels := f.Packed()
	return &Flat{
		bitWidth: f.bitWidth,
		codeSize: f.codeSize,
		codes:    codes,
		labels:   labels,
	}
}
