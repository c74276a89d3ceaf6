package index

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/imgdedup/fingerprint"
)

var (
	// ErrInvalidBitWidth is returned for non-positive bit widths.
	ErrInvalidBitWidth = errors.New("index: bit width must be positive")

	// ErrInvalidThreshold is returned for negative range thresholds.
	ErrInvalidThreshold = errors.New("index: threshold must not be negative")

	// ErrNonZeroPadding is returned by FromPacked when a code sets bits past
	// the bit width.
	ErrNonZeroPadding = errors.New("index: code pad bits must be zero")

	// ErrUnknownID is returned when an ID was never assigned.
	ErrUnknownID = errors.New("index: unknown id")
)

// ErrDimensionMismatch is returned when a code's width differs from the
// index bit width.
type ErrDimensionMismatch = fingerprint.ErrDimensionMismatch

// Match is a stored entry within the query threshold.
type Match struct {
	// ID is the sequence ID assigned at insert.
	ID uint64

	// Label is the label stored with the entry, possibly empty.
	Label string

	// Distance is the Hamming distance to the query.
	Distance int
}

// Result is the outcome of a range query.
type Result struct {
	// Matches are ordered by ID.
	Matches []Match

	ids *roaring64.Bitmap
}

func newResult() *Result {
	return &Result{ids: roaring64.New()}
}

func (r *Result) add(m Match) {
	r.Matches = append(r.Matches, m)
	r.ids.Add(m.ID)
}

// Len returns the number of matches.
func (r *Result) Len() int { return len(r.Matches) }

// IDs returns the set of matching IDs.
func (r *Result) IDs() *roaring64.Bitmap { return r.ids }

// Nearest returns the match with the smallest distance, preferring the
// lowest ID on ties.
func (r *Result) Nearest() (Match, bool) {
	if len(r.Matches) == 0 {
		return Match{}, false
	}
	best := r.Matches[0]
	for _, m := range r.Matches[1:] {
		if m.Distance < best.Distance {
			best = m
		}
	}
	return best, true
}
