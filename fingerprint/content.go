package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"
	"slices"
)

// ContentBits is the width of content-hash codes.
const ContentBits = 144

const contentChunkSize = 64 << 10

// ContentHash fingerprints opaque bytes by their SHA-256 digest.
//
// The digest is read as a little-endian 256-bit integer. The code is its
// binary representation without leading zeros, cut to the first 144 bits;
// an integer with fewer significant bits is padded with trailing zeros.
// Only byte-identical inputs produce equal codes.
type ContentHash struct{}

// NewContentHash returns the content hasher. bits must equal ContentBits.
func NewContentHash(bits int) (*ContentHash, error) {
	if bits != ContentBits {
		return nil, fmt.Errorf("%w: content hash width is %d bits, got %d", ErrConfig, ContentBits, bits)
	}
	return &ContentHash{}, nil
}

// BitWidth returns ContentBits.
func (*ContentHash) BitWidth() int { return ContentBits }

// Compute streams r through SHA-256.
func (*ContentHash) Compute(r io.Reader) (Code, error) {
	h := sha256.New()
	buf := make([]byte, contentChunkSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return Code{}, fmt.Errorf("%w: read: %v", ErrDecode, err)
	}
	return contentCode(h.Sum(nil)), nil
}

func contentCode(digest []byte) Code {
	// Most significant byte of a little-endian integer is the last one.
	be := slices.Clone(digest)
	slices.Reverse(be)

	n := new(big.Int).SetBytes(be)
	if bl := n.BitLen(); bl > ContentBits {
		n.Rsh(n, uint(bl-ContentBits))
	} else if bl > 0 {
		n.Lsh(n, uint(ContentBits-bl))
	}
	return Code{bits: ContentBits, data: n.FillBytes(make([]byte, ContentBits/8))}
}

// onlyReader hides WriterTo so CopyBuffer honours the chunk size.
type onlyReader struct {
	io.Reader
}
