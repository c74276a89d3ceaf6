// Package distance provides Hamming distance kernels over packed binary codes.
package distance

import (
	"encoding/binary"
	"math/bits"
)

// Hamming returns the number of differing bits between a and b.
// Assumes slices are the same length (caller's responsibility).
// Processes 8 bytes at a time using 64-bit popcount.
func Hamming(a, b []byte) int {
	n := min(len(a), len(b))

	var dist int
	i := 0
	for ; i+8 <= n; i += 8 {
		dist += bits.OnesCount64(binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:]))
	}
	for ; i < n; i++ {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}

	return dist
}

// HammingWithin reports whether the Hamming distance between a and b is at
// most maxDist. It stops scanning once the bound is exceeded.
func HammingWithin(a, b []byte, maxDist int) (int, bool) {
	if maxDist < 0 {
		return 0, false
	}

	n := min(len(a), len(b))

	var dist int
	i := 0
	for ; i+8 <= n; i += 8 {
		dist += bits.OnesCount64(binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:]))
		if dist > maxDist {
			return dist, false
		}
	}
	for ; i < n; i++ {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}

	return dist, dist <= maxDist
}
