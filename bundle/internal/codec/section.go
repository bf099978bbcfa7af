package codec

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/meigma/bundlebench/bundle/internal/bundletype"
	"github.com/meigma/bundlebench/bundle/internal/index"
)

// Section reads the decoded data stream of a bundle.
type Section interface {
	io.ReaderAt

	// Size returns the decoded stream size.
	Size() int64
}

// Layout describes a stored data section, as recorded in the index.
type Layout struct {
	Mode      bundletype.Compression
	DataSize  uint64
	ChunkSize uint32
	Chunks    []index.Chunk
}

// OpenOptions configures Open.
type OpenOptions struct {
	// Pool supplies zstd decoders for whole-stream sections. Nil creates a
	// one-off decoder.
	Pool *DecompressPool

	// ChunkCache is the number of decoded blocks kept for chunked sections.
	// Values <= 0 use DefaultChunkCache.
	ChunkCache int
}

// Open returns a Section over stored, whose layout is described by l.
//
// Store sections read stored directly. Whole sections are decoded in full
// before Open returns. Chunked sections decode blocks on demand.
func Open(stored *io.SectionReader, l Layout, opts OpenOptions) (Section, error) {
	if l.DataSize > math.MaxInt64 {
		return nil, bundletype.ErrSizeOverflow
	}
	size := int64(l.DataSize)

	switch l.Mode {
	case bundletype.CompressionStore:
		if stored.Size() != size {
			return nil, fmt.Errorf("%w: stored %d bytes, index says %d", bundletype.ErrCorrupt, stored.Size(), size)
		}
		return stored, nil

	case bundletype.CompressionWhole:
		return openWhole(stored, size, opts.Pool)

	case bundletype.CompressionChunk:
		return openChunked(stored, l, opts.ChunkCache)

	default:
		return nil, fmt.Errorf("codec: unknown compression %d", l.Mode)
	}
}

func openWhole(stored *io.SectionReader, size int64, pool *DecompressPool) (Section, error) {
	dec, release, err := pool.Get(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bundletype.ErrDecompression, err)
	}
	defer release()

	// One extra byte detects a stream longer than the index claims.
	buf := bytes.NewBuffer(make([]byte, 0, size+1))
	n, err := io.Copy(buf, io.LimitReader(dec, size+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bundletype.ErrDecompression, err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: decoded %d bytes, index says %d", bundletype.ErrCorrupt, n, size)
	}
	return bytes.NewReader(buf.Bytes()), nil
}
