// Package distance provides distance calculations over packed binary codes.
//
// Codes are byte slices holding 8 bits per byte. The Hamming distance is the
// population count of the XOR of two codes, computed 64 bits at a time with
// math/bits (which compiles to POPCNT on amd64 and CNT on arm64).
//
// # Usage
//
//	d := distance.Hamming(a, b)
//	d, ok := distance.HammingWithin(a, b, 10)
package distance
