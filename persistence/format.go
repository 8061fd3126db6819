// Package persistence provides the binary serialization format for index
// artifacts.
//
// Layout:
//
//	[FileHeader][payload]
//
// The header carries a magic number, format version, row count, dimension,
// metric, compression flag and a CRC32 checksum of the payload. The payload is
// the row-major float32 vector matrix, optionally zstd-compressed.
package persistence

import "errors"

const (
	// MagicNumber identifies knowspace index artifacts (ASCII: "KSI1").
	MagicNumber = 0x4B534931
	// Version is the current file format version.
	Version = 0x00010000

	// Metric codes stored in the header.
	MetricSquaredL2 = 1

	// Header flags.
	FlagCompressed = 1 << 0
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported format version")
	ErrInvalidMetric  = errors.New("invalid metric code")
	ErrChecksum       = errors.New("payload checksum mismatch")
)

// FileHeader is the fixed-size header at the start of every index artifact.
type FileHeader struct {
	Magic     uint32 // 0x4B534931 ("KSI1")
	Version   uint32 // File format version
	Metric    uint8  // 1=SquaredL2
	Flags     uint8  // bit 0: payload is zstd-compressed
	Padding   [2]byte
	RowCount  uint64 // Number of vectors
	Dimension uint32 // Vector dimensionality
	Checksum  uint32 // CRC32 (IEEE) of the payload as stored
}
