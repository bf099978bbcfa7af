package bundle

import (
	"errors"

	"github.com/meigma/bundlebench/bundle/internal/bundletype"
)

// Sentinel errors re-exported from internal/bundletype.
var (
	// ErrHashMismatch is returned when content does not match its hash.
	ErrHashMismatch = bundletype.ErrHashMismatch

	// ErrDecompression is returned when decompression fails.
	ErrDecompression = bundletype.ErrDecompression

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = bundletype.ErrSizeOverflow

	// ErrCorrupt is returned when the data section does not match the index.
	ErrCorrupt = bundletype.ErrCorrupt
)

// Sentinel errors specific to the bundle package.
var (
	// ErrNotBundle is returned when a file does not start with the bundle magic.
	ErrNotBundle = errors.New("bundle: not a bundle file")

	// ErrVersion is returned for an unsupported format version.
	ErrVersion = errors.New("bundle: unsupported format version")

	// ErrNotFound is returned when an asset is not in the bundle.
	ErrNotFound = errors.New("bundle: asset not found")

	// ErrWrongType is returned when an asset is not of the requested type.
	ErrWrongType = errors.New("bundle: wrong asset type")

	// ErrUnloaded is returned by operations on a bundle after Unload.
	ErrUnloaded = errors.New("bundle: unloaded")

	// ErrTooManyFiles is returned when the input count exceeds the configured limit.
	ErrTooManyFiles = errors.New("bundle: too many files")

	// ErrDuplicatePath is returned when two inputs produce the same asset name.
	ErrDuplicatePath = errors.New("bundle: duplicate asset path")

	// ErrFileTooLarge is returned when an asset exceeds the configured size limit.
	ErrFileTooLarge = errors.New("bundle: asset too large")
)
