// Package persistence provides the binary snapshot format for collections.
//
// A snapshot is a fixed 48-byte little-endian header followed by the
// payload:
//
//	offset size field
//	0      4    magic "IDD1"
//	4      4    format version
//	8      4    bit width
//	12     1    compression (0 none, 1 lz4, 2 zstd)
//	13     3    reserved
//	16     8    entry count
//	24     8    stored payload length
//	32     8    uncompressed payload length
//	40     4    CRC32-C of the stored payload
//	44     4    reserved
//
// The uncompressed payload holds count packed codes back to back, then one
// label per entry encoded as a uvarint length followed by the bytes.
//
// Any structural problem found while decoding is reported as an error
// matching [ErrCorrupt].
package persistence
