package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/imgdedup/fingerprint"
	"github.com/hupe1980/imgdedup/index"
)

// Options configures snapshot encoding.
type Options struct {
	// Compression is the preferred payload compression. Payloads that do not
	// compress well are stored uncompressed regardless.
	Compression CompressionType
}

// DefaultOptions stores payloads uncompressed.
var DefaultOptions = Options{Compression: CompressionNone}

// Marshal encodes idx into a snapshot.
func Marshal(idx *index.Flat, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := Encode(&buf, idx, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the snapshot of idx to w and returns the bytes written.
func Encode(w io.Writer, idx *index.Flat, opts Options) (int64, error) {
	codes, labels := idx.Packed()

	raw := make([]byte, 0, len(codes)+len(labels)*(binary.MaxVarintLen64+16))
	raw = append(raw, codes...)
	for _, l := range labels {
		raw = binary.AppendUvarint(raw, uint64(len(l)))
		raw = append(raw, l...)
	}

	stored, ct, err := compress(raw, opts.Compression)
	if err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}

	header := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		BitWidth:    uint32(idx.BitWidth()),
		Compression: ct,
		Count:       uint64(len(labels)),
		PayloadLen:  uint64(len(stored)),
		RawLen:      uint64(len(raw)),
		Checksum:    ComputeChecksum(stored),
	}
	hb, err := binary.Append(make([]byte, 0, HeaderSize), binary.LittleEndian, &header)
	if err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint32(hb[headerChecksumOffset:], ComputeChecksum(hb[:headerChecksumOffset]))

	if _, err := w.Write(hb); err != nil {
		return 0, err
	}
	n, err := w.Write(stored)
	return int64(HeaderSize + n), err
}

// ReadHeader decodes and validates the header at the start of data without
// touching the payload.
func ReadHeader(data []byte) (*FileHeader, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %w: %d header bytes", ErrCorrupt, ErrTruncated, len(data))
	}
	var h FileHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if h.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: %w: got 0x%08x", ErrCorrupt, ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %w: got %d", ErrCorrupt, ErrInvalidVersion, h.Version)
	}
	if err := verifyChecksum(data[:headerChecksumOffset], h.HeaderChecksum); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if h.BitWidth == 0 || h.BitWidth > math.MaxInt32 {
		return nil, fmt.Errorf("%w: bit width %d", ErrCorrupt, h.BitWidth)
	}
	return &h, nil
}

// Unmarshal decodes a snapshot produced by Marshal.
func Unmarshal(data []byte) (*index.Flat, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	body := data[HeaderSize:]
	if uint64(len(body)) != h.PayloadLen {
		return nil, fmt.Errorf("%w: %w: payload is %d bytes, header says %d", ErrCorrupt, ErrTruncated, len(body), h.PayloadLen)
	}
	if err := verifyChecksum(body, h.Checksum); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if err := checkRawLen(h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	raw, err := decompress(body, h.Compression, h.RawLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", ErrCorrupt, h.Compression, err)
	}

	codeSize := uint64(fingerprint.ByteLen(int(h.BitWidth)))
	if h.Count > uint64(len(raw))/codeSize {
		return nil, fmt.Errorf("%w: %w: %d codes do not fit %d bytes", ErrCorrupt, ErrTruncated, h.Count, len(raw))
	}
	codesLen := h.Count * codeSize
	codes, rest := raw[:codesLen], raw[codesLen:]

	labels := make([]string, h.Count)
	for i := range labels {
		n, k := binary.Uvarint(rest)
		if k <= 0 || n > uint64(len(rest)-k) {
			return nil, fmt.Errorf("%w: %w: label %d", ErrCorrupt, ErrTruncated, i)
		}
		labels[i] = string(rest[k : k+int(n)])
		rest = rest[k+int(n):]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(rest))
	}

	idx, err := index.FromPacked(int(h.BitWidth), codes, labels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return idx, nil
}

// checkRawLen rejects uncompressed lengths the stored payload cannot
// produce.
func checkRawLen(h *FileHeader) error {
	switch h.Compression {
	case CompressionNone:
		if h.RawLen != h.PayloadLen {
			return fmt.Errorf("raw length %d differs from payload length %d", h.RawLen, h.PayloadLen)
		}
	case CompressionLZ4:
		if h.PayloadLen == 0 || h.RawLen/maxLZ4Ratio > h.PayloadLen {
			return fmt.Errorf("raw length %d exceeds the lz4 bound for %d payload bytes", h.RawLen, h.PayloadLen)
		}
	case CompressionZSTD:
		if h.RawLen > math.MaxInt {
			return fmt.Errorf("raw length %d out of range", h.RawLen)
		}
	default:
		return fmt.Errorf("unknown compression %s", h.Compression)
	}
	return nil
}

// Decode reads a whole snapshot from r.
func Decode(r io.Reader) (*index.Flat, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
