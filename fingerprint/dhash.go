package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/nfnt/resize"
)

const (
	// DefaultHashSize yields 256-bit perceptual codes.
	DefaultHashSize = 16

	// MaxHashSize bounds the comparison grid.
	MaxHashSize = 64

	// DefaultMaxPixels bounds the decoded image area (about 16k × 16k).
	DefaultMaxPixels = 1 << 28
)

// DHash is the difference-hash perceptual fingerprint.
type DHash struct {
	hashSize  int
	maxPixels int
}

// DHashOption configures a DHash.
type DHashOption func(*DHash)

// WithMaxPixels rejects images whose width×height exceeds n before decoding
// pixel data. n <= 0 disables the check.
func WithMaxPixels(n int) DHashOption {
	return func(d *DHash) {
		d.maxPixels = n
	}
}

// NewDHash returns a dHash producing hashSize² bit codes.
func NewDHash(hashSize int, optFns ...DHashOption) (*DHash, error) {
	if hashSize < 2 || hashSize > MaxHashSize {
		return nil, fmt.Errorf("%w: hash size must be within [2, %d], got %d", ErrConfig, MaxHashSize, hashSize)
	}
	d := &DHash{hashSize: hashSize, maxPixels: DefaultMaxPixels}
	for _, fn := range optFns {
		fn(d)
	}
	return d, nil
}

// DHashForBitWidth returns the dHash whose codes are bits wide.
// bits must be the square of an integer >= 2.
func DHashForBitWidth(bits int, optFns ...DHashOption) (*DHash, error) {
	if bits <= 0 || bits > MaxHashSize*MaxHashSize {
		return nil, fmt.Errorf("%w: %d is not a perceptual bit width", ErrConfig, bits)
	}
	side := int(math.Sqrt(float64(bits)))
	for side*side < bits {
		side++
	}
	if side*side != bits || side < 2 {
		return nil, fmt.Errorf("%w: %d is not a perceptual bit width", ErrConfig, bits)
	}
	return NewDHash(side, optFns...)
}

// HashSize returns the side of the comparison grid.
func (d *DHash) HashSize() int { return d.hashSize }

// BitWidth returns hashSize².
func (d *DHash) BitWidth() int { return d.hashSize * d.hashSize }

// Compute decodes a raster image from r and hashes it.
func (d *DHash) Compute(r io.Reader) (Code, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Code{}, fmt.Errorf("%w: read: %v", ErrDecode, err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Code{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Code{}, fmt.Errorf("%w: empty %s image", ErrDecode, format)
	}
	if d.maxPixels > 0 && cfg.Width*cfg.Height > d.maxPixels {
		return Code{}, fmt.Errorf("%w: %s image %dx%d exceeds %d pixels", ErrDecode, format, cfg.Width, cfg.Height, d.maxPixels)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Code{}, fmt.Errorf("%w: %s: %v", ErrDecode, format, err)
	}
	return d.ComputeImage(img)
}

// ComputeImage hashes an already decoded image.
func (d *DHash) ComputeImage(img image.Image) (Code, error) {
	if img == nil || img.Bounds().Empty() {
		return Code{}, fmt.Errorf("%w: empty image", ErrDecode)
	}

	w, h := d.hashSize+1, d.hashSize
	small := resize.Resize(uint(w), uint(h), toGray(img), resize.Lanczos3)
	grid := toGray(small)

	out := newBitWriter(d.BitWidth())
	for y := 0; y < h; y++ {
		row := grid.Pix[y*grid.Stride:]
		for x := 0; x < d.hashSize; x++ {
			out.write(row[x+1] > row[x])
		}
	}
	return Code{bits: d.BitWidth(), data: out.bytes()}, nil
}

// toGray converts img to 8-bit luma with the ITU-R 601 weights. The result's
// bounds start at the origin.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		if b.Min == (image.Point{}) {
			return src
		}
	case *image.YCbCr:
		// Y already is luma.
		g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			off := src.YOffset(b.Min.X, b.Min.Y+y)
			copy(g.Pix[y*g.Stride:y*g.Stride+b.Dx()], src.Y[off:off+b.Dx()])
		}
		return g
	}

	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < b.Dx(); x++ {
			row[x] = luma(img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return g
}

// luma drops alpha and weighs the colour channels as PIL's "L" mode does.
func luma(c color.Color) uint8 {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	y := (uint32(nc.R)*19595 + uint32(nc.G)*38470 + uint32(nc.B)*7471 + 1<<15) >> 16
	return uint8(y)
}
