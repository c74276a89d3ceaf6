package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/hupe1980/imgdedup/fingerprint"
)

// ErrMalformed is returned when a parsed glTF document references image
// bytes it does not contain.
var ErrMalformed = errors.New("extract: malformed container")

// Kind tags the fingerprinting path of an asset.
type Kind int

const (
	// KindOpaque assets are content-hashed.
	KindOpaque Kind = iota
	// KindImage assets carry one or more raster images.
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Image is one raster extracted from an upload.
type Image struct {
	Name     string
	MimeType string
	Data     []byte
}

// Asset is a classified upload. Images is set for KindImage; Data always
// holds the original bytes.
type Asset struct {
	Kind   Kind
	Name   string
	Images []Image
	Data   []byte
}

// Classify inspects data once and returns the asset variant.
func Classify(name string, data []byte) (Asset, error) {
	asset := Asset{Kind: KindOpaque, Name: name, Data: data}

	if format, ok := fingerprint.RasterFormat(data); ok {
		asset.Kind = KindImage
		asset.Images = []Image{{Name: name, MimeType: "image/" + format, Data: data}}
		return asset, nil
	}

	if !looksLikeGLTF(name, data) {
		return asset, nil
	}

	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		// Not a model we can read; hash the bytes.
		return asset, nil
	}

	images, err := Images(&doc)
	if err != nil {
		return Asset{}, fmt.Errorf("%s: %w", name, err)
	}
	if len(images) > 0 {
		asset.Kind = KindImage
		asset.Images = images
	}
	return asset, nil
}

// Images returns the embedded images of doc in document order. Images
// that point at external URIs are skipped.
func Images(doc *gltf.Document) ([]Image, error) {
	var out []Image
	for i, img := range doc.Images {
		if img == nil {
			continue
		}
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image%d", i)
		}

		switch {
		case img.BufferView != nil:
			data, err := bufferViewBytes(doc, int(*img.BufferView))
			if err != nil {
				return nil, fmt.Errorf("image %d: %w", i, err)
			}
			out = append(out, Image{Name: name, MimeType: img.MimeType, Data: data})
		case img.IsEmbeddedResource():
			data, err := img.MarshalData()
			if err != nil {
				return nil, fmt.Errorf("%w: image %d: %w", ErrMalformed, i, err)
			}
			out = append(out, Image{Name: name, MimeType: mimeFromURI(img.URI), Data: data})
		}
	}
	return out, nil
}

func bufferViewBytes(doc *gltf.Document, view int) ([]byte, error) {
	if view < 0 || view >= len(doc.BufferViews) || doc.BufferViews[view] == nil {
		return nil, fmt.Errorf("%w: buffer view %d does not exist", ErrMalformed, view)
	}
	bv := doc.BufferViews[view]

	buf := int(bv.Buffer)
	if buf < 0 || buf >= len(doc.Buffers) || doc.Buffers[buf] == nil {
		return nil, fmt.Errorf("%w: buffer %d does not exist", ErrMalformed, buf)
	}
	data := doc.Buffers[buf].Data

	start, n := int(bv.ByteOffset), int(bv.ByteLength)
	if start < 0 || n <= 0 || start > len(data) || n > len(data)-start {
		return nil, fmt.Errorf("%w: buffer view %d spans [%d, %d) of a %d-byte buffer",
			ErrMalformed, view, start, start+n, len(data))
	}
	return data[start : start+n], nil
}

func looksLikeGLTF(name string, data []byte) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".glb", ".gltf":
		return true
	}
	if bytes.HasPrefix(data, []byte("glTF")) {
		return true
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("{")) && bytes.Contains(trimmed, []byte(`"asset"`))
}

// mimeFromURI returns the media type of a data: URI.
func mimeFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ""
	}
	mime, _, _ := strings.Cut(rest, ";")
	mime, _, _ = strings.Cut(mime, ",")
	return mime
}
