package imgdedup

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/imgdedup/extract"
	"github.com/hupe1980/imgdedup/fingerprint"
	"github.com/hupe1980/imgdedup/index"
	"github.com/hupe1980/imgdedup/store"
)

// Store is the collection storage used by a Service. *store.Store
// implements it.
type Store interface {
	Load(ctx context.Context, name string, bitWidth int) (*index.Flat, error)
	Update(ctx context.Context, name string, bitWidth int, fn func(idx *index.Flat) error) error
	Stats(ctx context.Context, name string, bitWidth int) (store.Stats, error)
}

var _ Store = (*store.Store)(nil)

// Upload is one asset submitted for add or check. Zero HashSize and empty
// Collection take the service defaults.
type Upload struct {
	Filename   string
	Data       []byte
	HashSize   int
	Collection string

	// RasterOnly rejects anything but a single raster image with
	// fingerprint.ErrDecode instead of content hashing it.
	RasterOnly bool
}

// AddResult reports an add.
type AddResult struct {
	// Added holds the upload's filename.
	Added []string

	// IDs are the sequence IDs assigned to the upload's codes.
	IDs []uint64

	// BitWidth selects the collection that was written.
	BitWidth int

	Kind extract.Kind
}

// Match is a stored code within the threshold of one of the upload's codes.
type Match struct {
	// Image names the extracted image that matched, or the filename for
	// opaque assets.
	Image string

	index.Match
}

// CheckResult reports a duplicate check.
type CheckResult struct {
	// Duplicated is true when any code of the upload has a match.
	Duplicated bool

	Matches []Match

	// IDs is the union of matching IDs.
	IDs []uint64

	BitWidth int

	Kind extract.Kind
}

// Service detects near-duplicate images against persisted collections.
// It holds no collection state between calls; every request loads the
// collection from the store.
type Service struct {
	store   Store
	content *fingerprint.ContentHash
	opts    options
}

// New creates a Service over st.
func New(st Store, optFns ...Option) *Service {
	content, err := fingerprint.NewContentHash(fingerprint.ContentBits)
	if err != nil {
		panic(err) // ContentBits is always valid
	}
	return &Service{
		store:   st,
		content: content,
		opts:    applyOptions(optFns),
	}
}

// fingerprinted is an upload reduced to codes.
type fingerprinted struct {
	collection string
	kind       extract.Kind
	bitWidth   int
	names      []string
	codes      []fingerprint.Code
}

// Add fingerprints the upload and appends its codes to the collection.
func (s *Service) Add(ctx context.Context, up Upload) (*AddResult, error) {
	start := time.Now()

	res, err := s.add(ctx, up)
	err = translateError(err)

	var kind string
	var codes int
	if res != nil {
		kind, codes = res.Kind.String(), len(res.IDs)
	}
	s.opts.metricsCollector.RecordAdd(kind, codes, time.Since(start), err)
	s.opts.logger.LogAdd(ctx, up.Filename, codes, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) add(ctx context.Context, up Upload) (*AddResult, error) {
	fp, err := s.fingerprint(ctx, up)
	if err != nil {
		return nil, err
	}

	ids, err := s.insert(ctx, fp.collection, fp.bitWidth, fp.codes, up.Filename)
	if err != nil {
		return nil, err
	}
	return &AddResult{
		Added:    []string{up.Filename},
		IDs:      ids,
		BitWidth: fp.bitWidth,
		Kind:     fp.kind,
	}, nil
}

// Check reports whether any code of the upload lies within threshold bits
// of a stored code. The collection is never modified.
func (s *Service) Check(ctx context.Context, up Upload, threshold int) (*CheckResult, error) {
	start := time.Now()

	res, err := s.check(ctx, up, threshold)
	err = translateError(err)

	var kind string
	var matches int
	if res != nil {
		kind, matches = res.Kind.String(), len(res.Matches)
	}
	s.opts.metricsCollector.RecordCheck(kind, matches > 0, time.Since(start), err)
	s.opts.logger.LogCheck(ctx, up.Filename, threshold, matches, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) check(ctx context.Context, up Upload, threshold int) (*CheckResult, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: %d", index.ErrInvalidThreshold, threshold)
	}
	fp, err := s.fingerprint(ctx, up)
	if err != nil {
		return nil, err
	}

	res, err := s.search(ctx, fp.collection, fp.bitWidth, fp.names, fp.codes, threshold)
	if err != nil {
		return nil, err
	}
	res.Kind = fp.kind
	return res, nil
}

// AddFingerprint appends a precomputed code to the collection keyed by the
// code's width and returns its sequence ID.
func (s *Service) AddFingerprint(ctx context.Context, collection string, code fingerprint.Code, label string) (uint64, error) {
	start := time.Now()

	ids, err := s.insert(ctx, s.collection(collection), code.Bits(), []fingerprint.Code{code}, label)
	err = translateError(err)

	s.opts.metricsCollector.RecordAdd("fingerprint", len(ids), time.Since(start), err)
	s.opts.logger.LogAdd(ctx, label, len(ids), err)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// CheckFingerprint range-searches a precomputed code.
func (s *Service) CheckFingerprint(ctx context.Context, collection string, code fingerprint.Code, threshold int) (*CheckResult, error) {
	start := time.Now()

	var (
		res *CheckResult
		err error
	)
	if threshold < 0 {
		err = fmt.Errorf("%w: %d", index.ErrInvalidThreshold, threshold)
	} else {
		res, err = s.search(ctx, s.collection(collection), code.Bits(), []string{code.Hex()}, []fingerprint.Code{code}, threshold)
	}
	err = translateError(err)

	matches := 0
	if res != nil {
		matches = len(res.Matches)
	}
	s.opts.metricsCollector.RecordCheck("fingerprint", matches > 0, time.Since(start), err)
	s.opts.logger.LogCheck(ctx, code.Hex(), threshold, matches, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Stats describes the persisted collection (name, bitWidth). An empty
// name selects the default collection.
func (s *Service) Stats(ctx context.Context, collection string, bitWidth int) (store.Stats, error) {
	st, err := s.store.Stats(ctx, s.collection(collection), bitWidth)
	return st, translateError(err)
}

func (s *Service) collection(name string) string {
	if name == "" {
		return s.opts.collection
	}
	return name
}

// fingerprint classifies the upload and computes its codes.
func (s *Service) fingerprint(ctx context.Context, up Upload) (*fingerprinted, error) {
	if up.RasterOnly {
		if _, ok := fingerprint.RasterFormat(up.Data); !ok {
			return nil, fmt.Errorf("%w: %s is not a supported raster image", fingerprint.ErrDecode, up.Filename)
		}
	}

	asset, err := extract.Classify(up.Filename, up.Data)
	if err != nil {
		return nil, err
	}

	fp := &fingerprinted{
		collection: s.collection(up.Collection),
		kind:       asset.Kind,
	}

	switch asset.Kind {
	case extract.KindImage:
		dhash, err := s.dhash(up.HashSize)
		if err != nil {
			return nil, err
		}
		fp.bitWidth = dhash.BitWidth()
		fp.names = make([]string, len(asset.Images))
		fp.codes = make([]fingerprint.Code, len(asset.Images))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.maxParallel)
		for i, img := range asset.Images {
			fp.names[i] = img.Name
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				code, err := dhash.Compute(bytes.NewReader(img.Data))
				if err != nil {
					return fmt.Errorf("%s: %w", img.Name, err)
				}
				fp.codes[i] = code
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	default:
		code, err := s.content.Compute(bytes.NewReader(asset.Data))
		if err != nil {
			return nil, err
		}
		fp.bitWidth = code.Bits()
		fp.names = []string{up.Filename}
		fp.codes = []fingerprint.Code{code}
	}

	s.opts.logger.DebugContext(ctx, "fingerprint computed",
		"filename", up.Filename,
		"kind", asset.Kind.String(),
		"codes", len(fp.codes),
		"bit_width", fp.bitWidth,
	)
	return fp, nil
}

// dhash returns the perceptual hasher for hashSize, or the default size
// when it is zero. The content code width is reserved.
func (s *Service) dhash(hashSize int) (*fingerprint.DHash, error) {
	if hashSize == 0 {
		hashSize = s.opts.hashSize
	}
	d, err := fingerprint.NewDHash(hashSize, fingerprint.WithMaxPixels(s.opts.maxPixels))
	if err != nil {
		return nil, err
	}
	if d.BitWidth() == fingerprint.ContentBits {
		return nil, fmt.Errorf("%w: hash size %d yields %d-bit codes, the width reserved for content codes",
			fingerprint.ErrConfig, hashSize, fingerprint.ContentBits)
	}
	return d, nil
}

// insert appends codes under the collection lock.
func (s *Service) insert(ctx context.Context, collection string, bitWidth int, codes []fingerprint.Code, label string) ([]uint64, error) {
	logger := s.opts.logger.WithCollection(collection, bitWidth)
	start := time.Now()

	ids := make([]uint64, 0, len(codes))
	err := s.store.Update(ctx, collection, bitWidth, func(idx *index.Flat) error {
		ids = ids[:0]
		for _, code := range codes {
			id, err := idx.Insert(code, label)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})

	s.opts.metricsCollector.RecordSave(time.Since(start), err)
	logger.LogSave(ctx, len(codes), err)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// search loads the collection once and range-searches every code.
func (s *Service) search(ctx context.Context, collection string, bitWidth int, names []string, codes []fingerprint.Code, threshold int) (*CheckResult, error) {
	logger := s.opts.logger.WithCollection(collection, bitWidth)
	start := time.Now()

	idx, err := s.store.Load(ctx, collection, bitWidth)
	s.opts.metricsCollector.RecordLoad(time.Since(start), err)
	if err != nil {
		logger.LogLoad(ctx, 0, err)
		return nil, err
	}
	logger.LogLoad(ctx, idx.Len(), nil)

	res := &CheckResult{BitWidth: bitWidth}
	union := roaring64.New()
	for i, code := range codes {
		r, err := idx.RangeSearch(code, threshold)
		if err != nil {
			return nil, err
		}
		for _, m := range r.Matches {
			res.Matches = append(res.Matches, Match{Image: names[i], Match: m})
		}
		union.Or(r.IDs())
	}
	res.Duplicated = !union.IsEmpty()
	res.IDs = union.ToArray()
	return res, nil
}
