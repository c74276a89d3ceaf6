package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgdedup/fingerprint"
	"github.com/hupe1980/imgdedup/index"
	"github.com/hupe1980/imgdedup/testutil"
)

func buildIndex(t *testing.T, bits, n int) *index.Flat {
	t.Helper()
	rng := testutil.NewRNG(int64(bits*1000 + n))
	idx, err := index.NewFlat(bits)
	require.NoError(t, err)
	for i := range n {
		label := ""
		if i%3 != 0 {
			label = "image-" + string(rune('a'+i%26)) + ".png"
		}
		_, err := idx.Insert(fingerprint.MustCode(bits, rng.PackedCode(bits)), label)
		require.NoError(t, err)
	}
	return idx
}

func assertSameIndex(t *testing.T, want, got *index.Flat) {
	t.Helper()
	require.Equal(t, want.BitWidth(), got.BitWidth())
	require.Equal(t, want.Len(), got.Len())
	wc, wl := want.Packed()
	gc, gl := got.Packed()
	assert.Equal(t, wc, gc)
	assert.Equal(t, wl, gl)
}

func TestHeaderSize(t *testing.T) {
	assert.Equal(t, HeaderSize, binary.Size(FileHeader{}))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		bits int
		n    int
		ct   CompressionType
	}{
		{"empty", 256, 0, CompressionNone},
		{"perceptual", 256, 50, CompressionNone},
		{"content", 144, 33, CompressionNone},
		{"odd width", 100, 7, CompressionNone},
		{"lz4", 256, 200, CompressionLZ4},
		{"zstd", 144, 200, CompressionZSTD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := buildIndex(t, tt.bits, tt.n)

			data, err := Marshal(idx, Options{Compression: tt.ct})
			require.NoError(t, err)

			got, err := Unmarshal(data)
			require.NoError(t, err)
			assertSameIndex(t, idx, got)

			h, err := ReadHeader(data)
			require.NoError(t, err)
			assert.Equal(t, uint64(tt.n), h.Count)
			assert.Equal(t, uint32(tt.bits), h.BitWidth)
		})
	}
}

func TestSnapshot_CompressibleLabelsAreCompressed(t *testing.T) {
	idx, err := index.NewFlat(64)
	require.NoError(t, err)
	for range 500 {
		_, err := idx.Insert(fingerprint.MustCode(64, make([]byte, 8)), "same-file-name-repeated.png")
		require.NoError(t, err)
	}

	for _, ct := range []CompressionType{CompressionLZ4, CompressionZSTD} {
		plain, err := Marshal(idx, DefaultOptions)
		require.NoError(t, err)
		packed, err := Marshal(idx, Options{Compression: ct})
		require.NoError(t, err)

		assert.Less(t, len(packed), len(plain), ct.String())
		h, err := ReadHeader(packed)
		require.NoError(t, err)
		assert.Equal(t, ct, h.Compression)

		got, err := Decode(bytes.NewReader(packed))
		require.NoError(t, err)
		assertSameIndex(t, idx, got)
	}
}

func TestSnapshot_Corruption(t *testing.T) {
	idx := buildIndex(t, 256, 20)
	good, err := Marshal(idx, DefaultOptions)
	require.NoError(t, err)

	mutate := func(fn func([]byte) []byte) []byte {
		return fn(bytes.Clone(good))
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short header", good[:10], ErrTruncated},
		{"bad magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b }), ErrInvalidMagic},
		{"bad version", mutate(func(b []byte) []byte { b[4] = 9; return b }), ErrInvalidVersion},
		{"truncated payload", good[:len(good)-5], ErrTruncated},
		{"flipped payload bit", mutate(func(b []byte) []byte { b[HeaderSize+3] ^= 0x10; return b }), nil},
		{"garbage", []byte("this is not a snapshot at all, just some text padding it out"), ErrInvalidMagic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorrupt)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

// restamp recomputes the header checksum after a deliberate header edit.
func restamp(b []byte) []byte {
	binary.LittleEndian.PutUint32(b[headerChecksumOffset:], ComputeChecksum(b[:headerChecksumOffset]))
	return b
}

func TestSnapshot_CorruptRawLength(t *testing.T) {
	idx := buildIndex(t, 256, 100)

	for _, ct := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(ct.String(), func(t *testing.T) {
			good, err := Marshal(idx, Options{Compression: ct})
			require.NoError(t, err)

			for _, rawLen := range []uint64{1 << 62, 1 << 40, 3} {
				flipped := bytes.Clone(good)
				binary.LittleEndian.PutUint64(flipped[32:40], rawLen)

				_, err := Unmarshal(flipped)
				assert.ErrorIs(t, err, ErrCorrupt)
				var cm *ChecksumMismatchError
				assert.ErrorAs(t, err, &cm)

				_, err = Unmarshal(restamp(flipped))
				assert.ErrorIs(t, err, ErrCorrupt)
			}
		})
	}
}

func TestSnapshot_NonZeroPaddingIsCorrupt(t *testing.T) {
	idx := buildIndex(t, 100, 3)
	good, err := Marshal(idx, Options{Compression: CompressionNone})
	require.NoError(t, err)

	b := bytes.Clone(good)
	codeSize := fingerprint.ByteLen(100)
	b[HeaderSize+2*codeSize-1] |= 0x01
	binary.LittleEndian.PutUint32(b[40:], ComputeChecksum(b[HeaderSize:]))

	_, err = Unmarshal(restamp(b))
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, index.ErrNonZeroPadding)
}

func TestReadHeader_FlippedCount(t *testing.T) {
	data, err := Marshal(buildIndex(t, 64, 4), DefaultOptions)
	require.NoError(t, err)
	data[16] ^= 0x01

	_, err = ReadHeader(data)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSnapshot_ChecksumMismatchIsTyped(t *testing.T) {
	data, err := Marshal(buildIndex(t, 64, 4), DefaultOptions)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF

	_, err = Unmarshal(data)
	var cm *ChecksumMismatchError
	require.True(t, errors.As(err, &cm))
	assert.NotEqual(t, cm.Expected, cm.Actual)
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]CompressionType{
		"":     CompressionNone,
		"none": CompressionNone,
		"LZ4":  CompressionLZ4,
		"zstd": CompressionZSTD,
	} {
		got, err := ParseCompression(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}
