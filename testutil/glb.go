package testutil

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942
)

// GLB assembles a binary glTF container with the given JSON and optional
// BIN chunk.
func GLB(json string, bin []byte) []byte {
	jsonChunk := pad([]byte(json), ' ')
	binChunk := pad(bin, 0)

	total := 12 + 8 + len(jsonChunk)
	if len(bin) > 0 {
		total += 8 + len(binChunk)
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.Write(le.AppendUint32(nil, glbMagic))
	buf.Write(le.AppendUint32(nil, 2))
	buf.Write(le.AppendUint32(nil, uint32(total)))
	buf.Write(le.AppendUint32(nil, uint32(len(jsonChunk))))
	buf.Write(le.AppendUint32(nil, glbChunkJSON))
	buf.Write(jsonChunk)
	if len(bin) > 0 {
		buf.Write(le.AppendUint32(nil, uint32(len(binChunk))))
		buf.Write(le.AppendUint32(nil, glbChunkBIN))
		buf.Write(binChunk)
	}
	return buf.Bytes()
}

// GLBWithImages returns a GLB whose BIN chunk holds the given PNG images,
// each referenced through its own buffer view.
func GLBWithImages(images ...[]byte) []byte {
	if len(images) == 0 {
		return GLB(`{"asset":{"version":"2.0"},"scenes":[{"nodes":[]}]}`, nil)
	}

	var bin []byte
	views := make([]string, 0, len(images))
	refs := make([]string, 0, len(images))
	for i, img := range images {
		views = append(views, fmt.Sprintf(`{"buffer":0,"byteOffset":%d,"byteLength":%d}`, len(bin), len(img)))
		refs = append(refs, fmt.Sprintf(`{"bufferView":%d,"mimeType":"image/png","name":"texture%d"}`, i, i))
		bin = pad(append(bin, img...), 0)
	}
	json := fmt.Sprintf(`{"asset":{"version":"2.0"},"buffers":[{"byteLength":%d}],"bufferViews":[%s],"images":[%s]}`,
		len(bin), strings.Join(views, ","), strings.Join(refs, ","))
	return GLB(json, bin)
}

// GLTFWithDataURI returns a JSON glTF document embedding png as a data URI.
func GLTFWithDataURI(png []byte) []byte {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	return []byte(fmt.Sprintf(`{"asset":{"version":"2.0"},"images":[{"uri":%q,"name":"embedded"}]}`, uri))
}

func pad(b []byte, fill byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, fill)
	}
	return b
}
