package imgdedup_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgdedup"
	"github.com/hupe1980/imgdedup/blobstore"
	"github.com/hupe1980/imgdedup/extract"
	"github.com/hupe1980/imgdedup/fingerprint"
	"github.com/hupe1980/imgdedup/store"
	"github.com/hupe1980/imgdedup/testutil"
)

func newService(t *testing.T, optFns ...imgdedup.Option) (*imgdedup.Service, *blobstore.MemoryStore) {
	t.Helper()
	blobs := blobstore.NewMemoryStore()
	return imgdedup.New(store.New(blobs), optFns...), blobs
}

func TestAddThenCheck_SameImage(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)
	png := testutil.EncodePNG(testutil.GradientImage(64, 64, 0))

	added, err := svc.Add(ctx, imgdedup.Upload{Filename: "cat.png", Data: png})
	require.NoError(t, err)
	assert.Equal(t, []string{"cat.png"}, added.Added)
	assert.Equal(t, []uint64{0}, added.IDs)
	assert.Equal(t, 256, added.BitWidth)
	assert.Equal(t, extract.KindImage, added.Kind)

	ok, err := blobs.Exists(ctx, "faiss_index_256")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := svc.Check(ctx, imgdedup.Upload{Filename: "again.png", Data: png}, 0)
	require.NoError(t, err)
	assert.True(t, res.Duplicated)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "cat.png", res.Matches[0].Label)
	assert.Equal(t, 0, res.Matches[0].Distance)
	assert.Equal(t, []uint64{0}, res.IDs)
}

func TestCheck_EmptyCollection(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)

	res, err := svc.Check(ctx, imgdedup.Upload{
		Filename: "x.png",
		Data:     testutil.EncodePNG(testutil.GradientImage(32, 32, 0)),
	}, 256)
	require.NoError(t, err)
	assert.False(t, res.Duplicated)
	assert.Empty(t, res.Matches)

	names, err := blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names, "check must not create collections")
}

func TestCheck_DifferentImageIsNotDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: testutil.EncodePNG(testutil.GradientImage(64, 64, 0))})
	require.NoError(t, err)

	res, err := svc.Check(ctx, imgdedup.Upload{Filename: "b.png", Data: testutil.EncodePNG(testutil.CheckerImage(64, 64, 8))}, 5)
	require.NoError(t, err)
	assert.False(t, res.Duplicated)
}

func TestCheck_JPEGReencodeIsDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, imgdedup.WithDefaultHashSize(8))
	img := testutil.GradientImage(128, 128, 10)

	_, err := svc.Add(ctx, imgdedup.Upload{Filename: "orig.png", Data: testutil.EncodePNG(img)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}))

	res, err := svc.Check(ctx, imgdedup.Upload{Filename: "copy.jpg", Data: buf.Bytes()}, 8)
	require.NoError(t, err)
	assert.True(t, res.Duplicated)
	assert.Equal(t, 64, res.BitWidth)
}

func TestHashSizeSelectsCollection(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)
	png := testutil.EncodePNG(testutil.GradientImage(32, 32, 0))

	added, err := svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png, HashSize: 8, Collection: "thumbs"})
	require.NoError(t, err)
	assert.Equal(t, 64, added.BitWidth)

	ok, err := blobs.Exists(ctx, "thumbs_64")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := svc.Check(ctx, imgdedup.Upload{Filename: "a.png", Data: png, Collection: "thumbs"}, 0)
	require.NoError(t, err)
	assert.False(t, res.Duplicated, "256-bit collection is separate")
}

func TestOpaqueAssetsUseContentHash(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)
	data := []byte("solid mesh without any textures")

	added, err := svc.Add(ctx, imgdedup.Upload{Filename: "mesh.bin", Data: data})
	require.NoError(t, err)
	assert.Equal(t, fingerprint.ContentBits, added.BitWidth)
	assert.Equal(t, extract.KindOpaque, added.Kind)

	ok, err := blobs.Exists(ctx, "faiss_index_144")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := svc.Check(ctx, imgdedup.Upload{Filename: "same.bin", Data: data}, 0)
	require.NoError(t, err)
	assert.True(t, res.Duplicated)

	res, err = svc.Check(ctx, imgdedup.Upload{Filename: "other.bin", Data: append(data, '!')}, 0)
	require.NoError(t, err)
	assert.False(t, res.Duplicated)
}

func TestGLBWithoutImagesIsContentHashed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	added, err := svc.Add(ctx, imgdedup.Upload{Filename: "cube.glb", Data: testutil.GLBWithImages()})
	require.NoError(t, err)
	assert.Equal(t, extract.KindOpaque, added.Kind)
	assert.Equal(t, fingerprint.ContentBits, added.BitWidth)
}

func TestGLBImages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, imgdedup.WithMaxParallel(2))
	a := testutil.EncodePNG(testutil.GradientImage(64, 64, 0))
	b := testutil.EncodePNG(testutil.CheckerImage(64, 64, 8))

	added, err := svc.Add(ctx, imgdedup.Upload{Filename: "model.glb", Data: testutil.GLBWithImages(a, b)})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, added.IDs)
	assert.Equal(t, 256, added.BitWidth)

	// A plain texture matches one image of the model.
	res, err := svc.Check(ctx, imgdedup.Upload{Filename: "texture.png", Data: b}, 0)
	require.NoError(t, err)
	assert.True(t, res.Duplicated)
	assert.Equal(t, []uint64{1}, res.IDs)
	assert.Equal(t, "model.glb", res.Matches[0].Label)

	// A model sharing any one image is a duplicate.
	other := testutil.EncodePNG(testutil.NewRNG(3).NoiseImage(64, 64))
	res, err = svc.Check(ctx, imgdedup.Upload{Filename: "remix.glb", Data: testutil.GLBWithImages(other, a)}, 0)
	require.NoError(t, err)
	assert.True(t, res.Duplicated)
	assert.Equal(t, []uint64{0}, res.IDs)
	assert.Equal(t, "texture1", res.Matches[0].Image)
}

func TestErrors_Config(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	png := testutil.EncodePNG(testutil.GradientImage(16, 16, 0))

	_, err := svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png, HashSize: 1})
	assert.ErrorIs(t, err, imgdedup.ErrConfig)

	_, err = svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png, Collection: "../escape"})
	assert.ErrorIs(t, err, imgdedup.ErrConfig)

	_, err = svc.Check(ctx, imgdedup.Upload{Filename: "a.png", Data: png}, -1)
	assert.ErrorIs(t, err, imgdedup.ErrConfig)
	assert.Equal(t, "config_error", imgdedup.KindOf(err))
}

func TestHashSize_Bounds(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)
	png := testutil.EncodePNG(testutil.GradientImage(16, 16, 0))

	for _, size := range []int{fingerprint.MaxHashSize + 1, 200000} {
		_, err := svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png, HashSize: size})
		assert.ErrorIs(t, err, imgdedup.ErrConfig, "size %d", size)

		_, err = svc.Check(ctx, imgdedup.Upload{Filename: "a.png", Data: png, HashSize: size}, 0)
		assert.ErrorIs(t, err, imgdedup.ErrConfig, "size %d", size)
	}

	names, err := blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestHashSize_ContentWidthIsReserved(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)
	png := testutil.EncodePNG(testutil.GradientImage(32, 32, 0))

	_, err := svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png, HashSize: 12})
	assert.ErrorIs(t, err, imgdedup.ErrConfig)
	_, err = svc.Check(ctx, imgdedup.Upload{Filename: "a.png", Data: png, HashSize: 12}, 10)
	assert.ErrorIs(t, err, imgdedup.ErrConfig)

	ok, err := blobs.Exists(ctx, "faiss_index_144")
	require.NoError(t, err)
	assert.False(t, ok, "no perceptual code may reach the content collection")
}

func TestHashSize_IgnoredForOpaqueAssets(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	data := []byte("opaque bytes")

	for _, size := range []int{1, 12, 200000} {
		added, err := svc.Add(ctx, imgdedup.Upload{Filename: "blob.bin", Data: data, HashSize: size})
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, fingerprint.ContentBits, added.BitWidth)
	}

	res, err := svc.Check(ctx, imgdedup.Upload{Filename: "blob.bin", Data: data, HashSize: -3}, 0)
	require.NoError(t, err)
	assert.True(t, res.Duplicated)
}

func TestErrors_Decode(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)

	_, err := svc.Add(ctx, imgdedup.Upload{Filename: "broken.glb", Data: testutil.GLBWithImages([]byte("not a png at all"))})
	assert.ErrorIs(t, err, imgdedup.ErrDecode)
	assert.Equal(t, "decode_error", imgdedup.KindOf(err))

	names, err := blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRasterOnly(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)

	_, err := svc.Add(ctx, imgdedup.Upload{Filename: "notes.txt", Data: []byte("plain text"), RasterOnly: true})
	assert.ErrorIs(t, err, imgdedup.ErrDecode)
	assert.Equal(t, "decode_error", imgdedup.KindOf(err))

	names, err := blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	png := testutil.EncodePNG(testutil.GradientImage(32, 32, 0))
	res, err := svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png, RasterOnly: true})
	require.NoError(t, err)
	assert.Equal(t, extract.KindImage, res.Kind)
}

func TestErrors_CorruptCollectionIsNeverMasked(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(t)
	garbage := bytes.Repeat([]byte{0xAB}, 96)
	require.NoError(t, blobs.Put(ctx, "faiss_index_256", garbage))
	png := testutil.EncodePNG(testutil.GradientImage(16, 16, 0))

	_, err := svc.Check(ctx, imgdedup.Upload{Filename: "a.png", Data: png}, 10)
	assert.ErrorIs(t, err, imgdedup.ErrStoreCorrupt)

	_, err = svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png})
	assert.ErrorIs(t, err, imgdedup.ErrStoreCorrupt)
	assert.Equal(t, "store_corrupt", imgdedup.KindOf(err))

	data, err := blobs.Get(ctx, "faiss_index_256")
	require.NoError(t, err)
	assert.Equal(t, garbage, data)
}

type downStore struct{ blobstore.BlobStore }

var errDown = errors.New("dial tcp: connection refused")

func (downStore) Get(context.Context, string) ([]byte, error) { return nil, errDown }
func (downStore) Put(context.Context, string, []byte) error   { return errDown }

func TestErrors_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	st := store.New(downStore{blobstore.NewMemoryStore()}, store.WithRetry(store.NoRetry()))
	svc := imgdedup.New(st)
	png := testutil.EncodePNG(testutil.GradientImage(16, 16, 0))

	_, err := svc.Check(ctx, imgdedup.Upload{Filename: "a.png", Data: png}, 0)
	assert.ErrorIs(t, err, imgdedup.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errDown)

	_, err = svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png})
	assert.ErrorIs(t, err, imgdedup.ErrStoreUnavailable)
	assert.Equal(t, "store_unavailable", imgdedup.KindOf(err))
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	rng := testutil.NewRNG(11)

	const n = 8
	uploads := make([]imgdedup.Upload, n)
	for i := range uploads {
		uploads[i] = imgdedup.Upload{
			Filename: fmt.Sprintf("img%d.png", i),
			Data:     testutil.EncodePNG(rng.NoiseImage(32, 32)),
		}
	}

	var wg sync.WaitGroup
	for _, up := range uploads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, up)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := svc.Stats(ctx, "", 256)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Equal(t, uint64(n), st.Count)

	for _, up := range uploads {
		res, err := svc.Check(ctx, up, 0)
		require.NoError(t, err)
		assert.True(t, res.Duplicated, up.Filename)
	}
}

func TestFingerprintScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	data := make([]byte, 32)
	for i := range 16 {
		data[2*i] = 0xFF
	}
	code := fingerprint.MustCode(256, data)

	id, err := svc.AddFingerprint(ctx, "", code, "query")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	res, err := svc.CheckFingerprint(ctx, "", code, 0)
	require.NoError(t, err)
	assert.True(t, res.Duplicated)

	inverted := make([]byte, 32)
	for i := range data {
		inverted[i] = ^data[i]
	}
	far := fingerprint.MustCode(256, inverted)

	res, err = svc.CheckFingerprint(ctx, "", far, 255)
	require.NoError(t, err)
	assert.False(t, res.Duplicated)

	res, err = svc.CheckFingerprint(ctx, "", far, 256)
	require.NoError(t, err)
	assert.True(t, res.Duplicated)
	assert.Equal(t, 256, res.Matches[0].Distance)

	_, err = svc.CheckFingerprint(ctx, "", far, -1)
	assert.ErrorIs(t, err, imgdedup.ErrConfig)
}

func TestMetricsCollector(t *testing.T) {
	ctx := context.Background()
	metrics := &imgdedup.BasicMetricsCollector{}
	svc, _ := newService(t, imgdedup.WithMetricsCollector(metrics))
	png := testutil.EncodePNG(testutil.GradientImage(16, 16, 0))

	_, err := svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png})
	require.NoError(t, err)
	_, err = svc.Check(ctx, imgdedup.Upload{Filename: "a.png", Data: png}, 0)
	require.NoError(t, err)
	_, err = svc.Add(ctx, imgdedup.Upload{Filename: "a.png", Data: png, HashSize: -4})
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.AddCount)
	assert.Equal(t, int64(1), stats.AddErrors)
	assert.Equal(t, int64(1), stats.AddCodes)
	assert.Equal(t, int64(1), stats.CheckCount)
	assert.Equal(t, int64(1), stats.CheckDuplicates)
	assert.Equal(t, int64(1), stats.LoadCount)
	assert.Equal(t, int64(1), stats.SaveCount)
}
