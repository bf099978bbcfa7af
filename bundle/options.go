package bundle

import (
	"log/slog"

	"github.com/meigma/bundlebench/bundle/internal/codec"
	"github.com/meigma/bundlebench/internal/group"
)

// DefaultMaxFileSize is the default per-asset size limit (256 MiB).
const DefaultMaxFileSize = 256 << 20

// config holds per-bundle settings.
type config struct {
	priority    Priority
	counter     *group.AwakeCounter
	mipMaps     bool
	maxFileSize uint64
	chunkCache  int
	logger      *slog.Logger
}

func defaultConfig() config {
	return config{
		priority:    PriorityNormal,
		maxFileSize: DefaultMaxFileSize,
		chunkCache:  codec.DefaultChunkCache,
	}
}

// Option configures a bundle opened by a Loader.
type Option func(*config)

// WithPriority sets the materialization priority (default: PriorityNormal).
func WithPriority(p Priority) Option {
	return func(c *config) {
		c.priority = p
	}
}

// WithAwakeCounter sets the counter incremented once per materialized group.
// Nil disables counting.
func WithAwakeCounter(counter *group.AwakeCounter) Option {
	return func(c *config) {
		c.counter = counter
	}
}

// WithMipMaps builds a mip chain for every texture when it is first
// resolved, modeling the cost of a texture upload.
func WithMipMaps(enabled bool) Option {
	return func(c *config) {
		c.mipMaps = enabled
	}
}

// WithMaxFileSize limits the size of a single asset read from the bundle.
// Set limit to 0 to disable the limit.
func WithMaxFileSize(limit uint64) Option {
	return func(c *config) {
		c.maxFileSize = limit
	}
}

// WithChunkCacheSize sets the number of decoded blocks kept for chunked
// bundles. Values <= 0 use the codec default.
func WithChunkCacheSize(n int) Option {
	return func(c *config) {
		c.chunkCache = n
	}
}

// WithLogger sets the logger for bundle operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// LoaderWithMaxDecoderMemory limits the memory used by each zstd decoder
// (default: 1 GiB). Set limit to 0 to disable the limit.
func LoaderWithMaxDecoderMemory(limit uint64) LoaderOption {
	return func(l *Loader) {
		l.maxDecoderMemory = limit
	}
}

// LoaderWithDecoderConcurrency sets the zstd decoder concurrency (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func LoaderWithDecoderConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		l.decoderConcurrency = max(n, 0)
	}
}

// LoaderWithDefaults sets options applied to every bundle the loader opens,
// before the options passed to OpenAsync.
func LoaderWithDefaults(opts ...Option) LoaderOption {
	return func(l *Loader) {
		l.defaults = append(l.defaults, opts...)
	}
}

// LoaderWithLogger sets the logger for the loader and the bundles it opens.
func LoaderWithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}
