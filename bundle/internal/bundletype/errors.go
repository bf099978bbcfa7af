package bundletype

import "errors"

// Sentinel errors shared by the bundle packages.
var (
	// ErrHashMismatch is returned when content does not match its hash.
	ErrHashMismatch = errors.New("bundle: hash verification failed")

	// ErrDecompression is returned when decompression fails.
	ErrDecompression = errors.New("bundle: decompression failed")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("bundle: size overflow")

	// ErrCorrupt is returned when the data section does not match the index.
	ErrCorrupt = errors.New("bundle: corrupt data section")
)
