package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/meigma/bundlebench/bundle/internal/codec"
	"github.com/meigma/bundlebench/bundle/internal/index"
	"github.com/meigma/bundlebench/internal/group"
)

// Loader opens bundle files in the background.
//
// A Loader shares its zstd decoder pool across every bundle it opens. It is
// safe for concurrent use.
type Loader struct {
	maxDecoderMemory   uint64
	decoderConcurrency int
	defaults           []Option
	logger             *slog.Logger
	pool               *codec.DecompressPool
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		maxDecoderMemory:   codec.DefaultMaxDecoderMemory,
		decoderConcurrency: 1,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.pool = codec.NewDecompressPool(l.maxDecoderMemory, l.decoderConcurrency)
	return l
}

// log returns the logger, falling back to a discard logger if nil.
func (l *Loader) log() *slog.Logger {
	if l.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.logger
}

// OpenRequest is a pending bundle open.
//
// Poll Done once per frame, or call Wait. Bundle and Err report the outcome
// once Done returns true.
type OpenRequest struct {
	path   string
	done   chan struct{}
	bundle *Bundle
	err    error
}

// Path returns the file being opened.
func (r *OpenRequest) Path() string {
	return r.path
}

// Done reports whether the open has finished. It never blocks.
func (r *OpenRequest) Done() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Bundle returns the opened bundle, or nil while pending or on failure.
func (r *OpenRequest) Bundle() *Bundle {
	if !r.Done() {
		return nil
	}
	return r.bundle
}

// Err returns the open error, or nil while pending or on success.
func (r *OpenRequest) Err() error {
	if !r.Done() {
		return nil
	}
	return r.err
}

// Wait blocks until the open finishes or ctx is done.
//
// A canceled wait does not cancel the open; the bundle still becomes
// available through the request and must be unloaded by its owner.
func (r *OpenRequest) Wait(ctx context.Context) (*Bundle, error) {
	select {
	case <-r.done:
		return r.bundle, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OpenAsync starts opening the bundle at path and returns at once.
func (l *Loader) OpenAsync(path string, opts ...Option) *OpenRequest {
	req := &OpenRequest{path: path, done: make(chan struct{})}
	go func() {
		defer close(req.done)
		req.bundle, req.err = l.open(path, opts)
	}()
	return req
}

// Open opens the bundle at path and blocks until it is ready.
func (l *Loader) Open(ctx context.Context, path string, opts ...Option) (*Bundle, error) {
	req := l.OpenAsync(path, opts...)
	b, err := req.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		// Release the bundle once the abandoned open completes.
		go func() {
			<-req.done
			if req.bundle != nil {
				_ = req.bundle.Unload() //nolint:errcheck // abandoned open
			}
		}()
	}
	return b, err
}

// Open opens the bundle at path with a default Loader.
func Open(ctx context.Context, path string, opts ...Option) (*Bundle, error) {
	return NewLoader().Open(ctx, path, opts...)
}

func (l *Loader) open(path string, opts []Option) (*Bundle, error) {
	cfg := defaultConfig()
	cfg.logger = l.logger
	for _, opt := range l.defaults {
		opt(&cfg)
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := time.Now()
	f, err := os.Open(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, err
	}
	b, err := l.load(f, cfg)
	if err != nil {
		f.Close()
		l.log().Warn("bundle open failed", "path", path, "error", err)
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	b.path = path
	b.log().Debug("bundle opened",
		"path", path,
		"name", b.Name(),
		"compression", b.Compression().String(),
		"entries", b.Len(),
		"duration", time.Since(start))
	return b, nil
}

func (l *Loader) load(f *os.File, cfg config) (*Bundle, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()

	h, err := readHeader(f)
	if err != nil {
		return nil, err
	}
	if h.indexLen > maxIndexSize || h.indexLen > uint64(size-headerSize) { //nolint:gosec // size >= headerSize after readHeader
		return nil, fmt.Errorf("%w: index length %d exceeds file", ErrNotBundle, h.indexLen)
	}
	indexData := make([]byte, h.indexLen)
	if _, err := f.ReadAt(indexData, headerSize); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read index: %w", err)
	}
	idx, err := index.Load(indexData)
	if err != nil {
		return nil, err
	}
	if idx.Compression() != h.compression {
		return nil, fmt.Errorf("%w: header says %s, index says %s", ErrCorrupt, h.compression, idx.Compression())
	}

	dataStart := headerSize + int64(h.indexLen) //nolint:gosec // bounded by maxIndexSize
	stored := io.NewSectionReader(f, dataStart, size-dataStart)
	data, err := codec.Open(stored, codec.Layout{
		Mode:      idx.Compression(),
		DataSize:  idx.DataSize(),
		ChunkSize: idx.ChunkSize(),
		Chunks:    idx.Chunks(),
	}, codec.OpenOptions{Pool: l.pool, ChunkCache: cfg.chunkCache})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bundle{
		f:        f,
		idx:      idx,
		data:     data,
		fileSize: size,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.priority.Workers())),
		ctx:      ctx,
		cancel:   cancel,
		textures: make(map[string]*group.Texture),
	}
	return b, nil
}
