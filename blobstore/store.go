package blobstore

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// BlobStore stores named immutable blobs.
type BlobStore interface {
	// Get returns the full content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put creates or atomically replaces a blob.
	Put(ctx context.Context, name string, data []byte) error

	// Exists reports whether a blob exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// IsNotFound reports whether err means the blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidateName rejects names that could escape a store's namespace.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return &InvalidNameError{Name: name}
	}
	return nil
}

// InvalidNameError is returned for blob names that are empty or contain path
// separators.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return "blobstore: invalid blob name " + `"` + e.Name + `"`
}
