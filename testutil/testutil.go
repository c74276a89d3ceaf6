package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b)
	return b
}

// PackedCode returns a random packed code of the given bit width.
// Pad bits in the final byte are cleared.
func (r *RNG) PackedCode(bits int) []byte {
	b := r.Bytes((bits + 7) / 8)
	if rem := bits % 8; rem != 0 {
		b[len(b)-1] &= byte(0xFF << (8 - rem))
	}
	return b
}

// FlipBits returns a copy of code with n distinct bits (below bits) flipped.
func (r *RNG) FlipBits(code []byte, bits, n int) []byte {
	out := bytes.Clone(code)
	r.mu.Lock()
	perm := r.rand.Perm(bits)
	r.mu.Unlock()
	for _, i := range perm[:n] {
		out[i/8] ^= 0x80 >> (i % 8)
	}
	return out
}

// NoiseImage returns a w×h RGBA image filled with random pixels.
func (r *RNG) NoiseImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.rand.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
	return img
}

// GradientImage returns a w×h RGBA image with a diagonal gradient.
// Pixel values stay within [offset, offset+200] so that a later brightness
// shift does not clip.
func GradientImage(w, h int, offset uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(int(offset) + (x*120)/w + (y*80)/h)
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 0xFF})
		}
	}
	return img
}

// CheckerImage returns a w×h grayscale checkerboard with the given cell size.
func CheckerImage(w, h, cell int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if ((x/cell)+(y/cell))%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 230})
			} else {
				img.SetGray(x, y, color.Gray{Y: 25})
			}
		}
	}
	return img
}

// EncodePNG encodes img as PNG and panics on failure.
func EncodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// EncodeBMP encodes img as BMP and panics on failure.
func EncodeBMP(img image.Image) []byte {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// EncodeTIFF encodes img as uncompressed TIFF and panics on failure.
func EncodeTIFF(img image.Image) []byte {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
