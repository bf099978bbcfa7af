package bundle

import (
	"log/slog"

	"github.com/klauspost/compress/zstd"
)

// DefaultMaxFiles is the default limit used when no CreateWithMaxFiles option is set.
const DefaultMaxFiles = 100_000

// createConfig holds configuration for bundle creation.
type createConfig struct {
	compression Compression
	chunkSize   int
	zstdLevel   zstd.EncoderLevel
	name        string
	maxFiles    int
	tempDir     string
	progress    ProgressFunc
	logger      *slog.Logger
}

// CreateOption configures bundle creation.
type CreateOption func(*createConfig)

// CreateWithCompression sets how the data section is stored.
// The default is CompressionStore.
func CreateWithCompression(c Compression) CreateOption {
	return func(cfg *createConfig) {
		cfg.compression = c
	}
}

// CreateWithChunkSize sets the raw block size for CompressionChunk.
// Zero uses the codec default of 128 KiB.
func CreateWithChunkSize(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.chunkSize = n
	}
}

// CreateWithZstdLevel sets the encoder level for CompressionWhole.
func CreateWithZstdLevel(level zstd.EncoderLevel) CreateOption {
	return func(cfg *createConfig) {
		cfg.zstdLevel = level
	}
}

// CreateWithName records the bundle name in the index.
func CreateWithName(name string) CreateOption {
	return func(cfg *createConfig) {
		cfg.name = name
	}
}

// CreateWithMaxFiles limits the number of assets in the bundle.
// Zero uses DefaultMaxFiles. Negative means no limit.
func CreateWithMaxFiles(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.maxFiles = n
	}
}

// CreateWithTempDir sets the directory used to stage the data section.
// The default is the directory of the output file for CreateFile and
// os.TempDir for Create.
func CreateWithTempDir(dir string) CreateOption {
	return func(cfg *createConfig) {
		cfg.tempDir = dir
	}
}

// CreateWithProgress sets a callback that receives progress events.
func CreateWithProgress(fn ProgressFunc) CreateOption {
	return func(cfg *createConfig) {
		cfg.progress = fn
	}
}

// CreateWithLogger sets the logger used during creation.
func CreateWithLogger(logger *slog.Logger) CreateOption {
	return func(cfg *createConfig) {
		cfg.logger = logger
	}
}
