package fingerprint

import "io"

// Hasher computes a fingerprint of a fixed bit width.
type Hasher interface {
	// Compute reads the asset from r and returns its code.
	Compute(r io.Reader) (Code, error)

	// BitWidth returns the width of every code produced by the hasher.
	BitWidth() int
}

var (
	_ Hasher = (*DHash)(nil)
	_ Hasher = (*ContentHash)(nil)
)
