package persistence

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressed payload envelope:
//
//	[0:8]  uncompressed size (uint64 LE)
//	[8:16] compressed size (uint64 LE, 0 = stored raw)
//	[16:]  payload bytes
//
// Incompressible payloads are stored raw regardless of the selected
// algorithm, so readers must honor the envelope, not the header id.
const payloadEnvelopeSize = 16

// compressPayload wraps data in a payload envelope, compressing it
// with c when that actually shrinks it.
func compressPayload(data []byte, c Compression) ([]byte, error) {
	var compressed []byte

	switch c {
	case CompressionNone:
		// Stored raw below.
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("persistence: zstd encoder: %w", err)
		}
		compressed = enc.EncodeAll(data, make([]byte, 0, len(data)/2))
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("persistence: zstd encoder: %w", err)
		}
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("persistence: lz4 compress: %w", err)
		}
		// n == 0 means incompressible; fall through to raw storage.
		compressed = buf[:n]
	default:
		return nil, fmt.Errorf("persistence: unknown compression %q", c)
	}

	if len(compressed) == 0 || len(compressed) >= len(data) {
		out := make([]byte, payloadEnvelopeSize+len(data))
		binary.LittleEndian.PutUint64(out[0:8], uint64(len(data)))
		copy(out[payloadEnvelopeSize:], data)
		return out, nil
	}

	out := make([]byte, payloadEnvelopeSize+len(compressed))
	binary.LittleEndian.PutUint64(out[0:8], uint64(len(data)))
	binary.LittleEndian.PutUint64(out[8:16], uint64(len(compressed)))
	copy(out[payloadEnvelopeSize:], compressed)
	return out, nil
}

// decompressPayload unwraps a payload envelope. The result is always
// a fresh buffer, never a view into data, so callers may release the
// underlying mapping afterwards.
func decompressPayload(data []byte, c Compression) ([]byte, error) {
	if len(data) < payloadEnvelopeSize {
		return nil, fmt.Errorf("persistence: payload envelope too short: %d bytes: %w", len(data), ErrTruncated)
	}

	rawSize := binary.LittleEndian.Uint64(data[0:8])
	compSize := binary.LittleEndian.Uint64(data[8:16])
	body := data[payloadEnvelopeSize:]

	if compSize == 0 {
		if uint64(len(body)) != rawSize {
			return nil, fmt.Errorf("persistence: raw payload size %d does not match envelope %d: %w", len(body), rawSize, ErrTruncated)
		}
		out := make([]byte, rawSize)
		copy(out, body)
		return out, nil
	}

	if uint64(len(body)) != compSize {
		return nil, fmt.Errorf("persistence: compressed payload size %d does not match envelope %d: %w", len(body), compSize, ErrTruncated)
	}

	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("persistence: zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("persistence: zstd decompress: %w", err)
		}
		if uint64(len(out)) != rawSize {
			return nil, fmt.Errorf("persistence: zstd payload decompressed to %d bytes, envelope says %d", len(out), rawSize)
		}
		return out, nil
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("persistence: lz4 decompress: %w", err)
		}
		if uint64(n) != rawSize {
			return nil, fmt.Errorf("persistence: lz4 payload decompressed to %d bytes, envelope says %d", n, rawSize)
		}
		return out, nil
	case CompressionNone:
		// A "none" snapshot always stores raw (compSize == 0), which
		// is handled above. A non-zero compressed size is corruption.
		return nil, fmt.Errorf("persistence: uncompressed snapshot carries compressed payload")
	default:
		return nil, fmt.Errorf("persistence: unknown compression %q", c)
	}
}
