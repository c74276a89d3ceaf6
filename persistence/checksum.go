package persistence

import (
	"fmt"

	"github.com/hupe1980/imgdedup/internal/hash"
)

// Checksums use CRC32-C. They detect accidental corruption only.

// ComputeChecksum returns the CRC32-C of data.
func ComputeChecksum(data []byte) uint32 {
	return hash.CRC32C(data)
}

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Is makes checksum mismatches match ErrCorrupt.
func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrCorrupt
}

func verifyChecksum(data []byte, expected uint32) error {
	if actual := ComputeChecksum(data); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
