package fingerprint

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is returned when input bytes cannot be decoded or read.
	ErrDecode = errors.New("fingerprint: cannot decode input")

	// ErrConfig is returned for invalid bit widths or hash parameters.
	ErrConfig = errors.New("fingerprint: invalid configuration")
)

// ErrDimensionMismatch indicates that two codes have different bit widths.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d bits, got %d", e.Expected, e.Actual)
}
