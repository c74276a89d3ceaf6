package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/imgdedup/blobstore"
)

// Key identifies a collection.
type Key struct {
	Name     string
	BitWidth int
}

// NewKey validates name and bitWidth.
func NewKey(name string, bitWidth int) (Key, error) {
	if bitWidth <= 0 {
		return Key{}, fmt.Errorf("%w: %d", ErrInvalidBitWidth, bitWidth)
	}
	if err := blobstore.ValidateName(name); err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return Key{Name: name, BitWidth: bitWidth}, nil
}

// BlobName returns "<name>_<bitwidth>".
func (k Key) BlobName() string {
	return k.Name + "_" + strconv.Itoa(k.BitWidth)
}

func (k Key) String() string { return k.BlobName() }

// ParseBlobName splits a blob name produced by Key.BlobName. The name part
// may itself contain underscores.
func ParseBlobName(blob string) (Key, bool) {
	i := strings.LastIndexByte(blob, '_')
	if i <= 0 || i == len(blob)-1 {
		return Key{}, false
	}
	bits, err := strconv.Atoi(blob[i+1:])
	if err != nil || bits <= 0 || strconv.Itoa(bits) != blob[i+1:] {
		return Key{}, false
	}
	return Key{Name: blob[:i], BitWidth: bits}, true
}
