// Package hash provides CRC32-Castagnoli checksums for snapshot integrity.
//
// Go's hash/crc32 uses hardware instructions (SSE4.2, ARMv8 CRC) when they
// are available.
//
//	checksum := hash.CRC32C(data)
package hash
