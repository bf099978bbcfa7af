package codec

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/bundlebench/bundle/internal/bundletype"
	"github.com/meigma/bundlebench/bundle/internal/index"
)

// DefaultChunkSize is the decoded size of each block in chunked sections.
const DefaultChunkSize = 128 << 10

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("codec: writer closed")

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithChunkSize sets the decoded block size for chunked sections.
// Values <= 0 use DefaultChunkSize.
func WithChunkSize(n int) WriterOption {
	return func(w *Writer) {
		if n <= 0 {
			n = DefaultChunkSize
		}
		w.chunkSize = n
	}
}

// WithZstdLevel sets the encoder level for whole-stream sections.
func WithZstdLevel(level zstd.EncoderLevel) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// Writer encodes a data stream under one compression mode.
//
// Bytes passed to Write are the decoded stream; the encoded form goes to the
// underlying writer. Close must be called to flush the final block.
type Writer struct {
	mode      bundletype.Compression
	out       *countingWriter
	raw       uint64
	level     zstd.EncoderLevel
	enc       *zstd.Encoder
	chunkSize int
	buf       []byte
	chunks    []index.Chunk
	closed    bool
}

// NewWriter returns a Writer that encodes to w using mode.
func NewWriter(w io.Writer, mode bundletype.Compression, opts ...WriterOption) (*Writer, error) {
	cw := &Writer{
		mode:      mode,
		out:       &countingWriter{w: w},
		level:     zstd.SpeedBetterCompression,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(cw)
	}
	if uint64(cw.chunkSize) > math.MaxUint32 {
		return nil, fmt.Errorf("codec: chunk size %d: %w", cw.chunkSize, bundletype.ErrSizeOverflow)
	}

	switch mode {
	case bundletype.CompressionStore:
	case bundletype.CompressionWhole:
		enc, err := zstd.NewWriter(cw.out, zstd.WithEncoderLevel(cw.level), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		cw.enc = enc
	case bundletype.CompressionChunk:
		cw.buf = make([]byte, 0, cw.chunkSize)
	default:
		return nil, fmt.Errorf("codec: unknown compression %d", mode)
	}
	return cw, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	var (
		n   int
		err error
	)
	switch w.mode {
	case bundletype.CompressionStore:
		n, err = w.out.Write(p)
	case bundletype.CompressionWhole:
		n, err = w.enc.Write(p)
	case bundletype.CompressionChunk:
		n, err = w.writeChunked(p)
	}
	w.raw += uint64(n) //nolint:gosec // n is non-negative
	return n, err
}

func (w *Writer) writeChunked(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		room := w.chunkSize - len(w.buf)
		take := min(room, len(p))
		w.buf = append(w.buf, p[:take]...)
		p = p[take:]
		written += take
		if len(w.buf) == w.chunkSize {
			if err := w.flushChunk(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (w *Writer) flushChunk() error {
	if len(w.buf) == 0 {
		return nil
	}
	encoded := s2.Encode(nil, w.buf)
	offset := w.out.n
	if _, err := w.out.Write(encoded); err != nil {
		return err
	}
	w.chunks = append(w.chunks, index.Chunk{
		Offset:  offset,
		Size:    uint32(len(encoded)), //nolint:gosec // s2 output for a chunk fits in uint32
		RawSize: uint32(len(w.buf)),   //nolint:gosec // bounded by chunkSize
	})
	w.buf = w.buf[:0]
	return nil
}

// Close flushes buffered data. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	switch w.mode {
	case bundletype.CompressionWhole:
		return w.enc.Close()
	case bundletype.CompressionChunk:
		return w.flushChunk()
	}
	return nil
}

// Mode returns the compression mode.
func (w *Writer) Mode() bundletype.Compression {
	return w.mode
}

// RawSize returns the number of decoded bytes written.
func (w *Writer) RawSize() uint64 {
	return w.raw
}

// StoredSize returns the number of encoded bytes written so far.
func (w *Writer) StoredSize() uint64 {
	return w.out.n
}

// ChunkSize returns the nominal block size; zero for non-chunked modes.
func (w *Writer) ChunkSize() uint32 {
	if w.mode != bundletype.CompressionChunk {
		return 0
	}
	return uint32(w.chunkSize) //nolint:gosec // checked in NewWriter
}

// Chunks returns the block table. Only valid after Close.
func (w *Writer) Chunks() []index.Chunk {
	return w.chunks
}
