package persistence

import "errors"

const (
	// MagicNumber identifies snapshot files (ASCII "IDD1" in little endian).
	MagicNumber = 0x31444449
	// Version is the current snapshot format version.
	Version = 1

	// HeaderSize is the encoded size of FileHeader.
	HeaderSize = 48

	// headerChecksumOffset is where HeaderChecksum starts; the checksum
	// covers every header byte before it.
	headerChecksumOffset = 44

	// maxLZ4Ratio bounds how far an LZ4 block can expand.
	maxLZ4Ratio = 255
)

var (
	// ErrCorrupt is matched by every decoding failure.
	ErrCorrupt = errors.New("corrupt snapshot")

	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrTruncated      = errors.New("truncated snapshot")
)

// FileHeader is the 48-byte header at the start of every snapshot.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	BitWidth    uint32
	Compression CompressionType
	_           [3]byte
	Count       uint64
	PayloadLen  uint64
	RawLen      uint64
	Checksum    uint32

	// HeaderChecksum is the CRC32-C of the preceding header bytes, so
	// corrupted lengths are rejected before anything is allocated.
	HeaderChecksum uint32
}
