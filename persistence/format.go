package persistence

import (
	"errors"
	"fmt"
)

var (
	snapshotMagic       = [4]byte{'P', 'C', 'O', 'R'}
	snapshotDirMagic    = [4]byte{'P', 'C', 'D', 'R'}
	snapshotFooterMagic = [4]byte{'P', 'C', 'F', 'T'}

	snapshotFormatVersion = uint16(1)
)

const (
	// sectionStore is the codec-marshaled store layout: contrasts,
	// parcels and per-record entities plus offsets into the voxel
	// payload.
	sectionStore = uint16(1)

	// sectionVoxels is the concatenated voxel payload, float64
	// little-endian, compressed according to the header.
	sectionVoxels = uint16(2)

	// sectionResults is the codec-marshaled similarity results. The
	// section is optional: a snapshot may hold a bare store.
	sectionResults = uint16(3)
)

var (
	// ErrInvalidMagic is returned when a file does not start with the
	// snapshot magic.
	ErrInvalidMagic = errors.New("invalid snapshot magic")

	// ErrInvalidVersion is returned for snapshot format versions this
	// build cannot read.
	ErrInvalidVersion = errors.New("unsupported snapshot version")

	// ErrTruncated is returned when a snapshot is too short to hold
	// the structures its header or footer announce.
	ErrTruncated = errors.New("truncated snapshot")
)

// Compression identifies the algorithm applied to the voxel payload
// section. The store layout and results sections are small JSON blobs
// and stay uncompressed.
type Compression uint8

const (
	// CompressionNone stores the voxel payload verbatim.
	CompressionNone Compression = iota

	// CompressionZstd compresses the voxel payload with zstandard.
	CompressionZstd

	// CompressionLZ4 compresses the voxel payload with lz4.
	CompressionLZ4
)

// DefaultCompression is used when no compression is selected.
const DefaultCompression = CompressionZstd

// String returns the compression's stable name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression returns the compression named by s.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("persistence: unknown compression %q", s)
	}
}
