// Package bundletype holds the types shared by the bundle package and its
// internal codec and index packages.
package bundletype

import (
	"fmt"
	"strings"
)

// Compression identifies how a bundle's data section is stored.
type Compression uint8

const (
	// CompressionStore keeps the data section uncompressed.
	CompressionStore Compression = iota

	// CompressionWhole compresses the data section as one zstd stream, which
	// must be decoded in full when the bundle is opened.
	CompressionWhole

	// CompressionChunk compresses the data section in fixed-size s2 blocks
	// that are decoded on demand.
	CompressionChunk
)

// Compressions lists every mode in build order.
var Compressions = []Compression{CompressionStore, CompressionWhole, CompressionChunk}

// String returns the mode's name, also used as the bundle file suffix.
func (c Compression) String() string {
	switch c {
	case CompressionStore:
		return "store"
	case CompressionWhole:
		return "whole"
	case CompressionChunk:
		return "chunk"
	default:
		return "unknown"
	}
}

// Valid reports whether c is a known mode.
func (c Compression) Valid() bool {
	return c <= CompressionChunk
}

// ParseCompression parses a mode name. The engine build option names
// (uncompressed, lzma, lz4) are accepted as aliases.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "store", "none", "uncompressed":
		return CompressionStore, nil
	case "whole", "zstd", "lzma":
		return CompressionWhole, nil
	case "chunk", "s2", "lz4", "chunked":
		return CompressionChunk, nil
	default:
		return 0, fmt.Errorf("unknown compression mode %q", s)
	}
}
