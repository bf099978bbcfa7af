package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// CreateFile builds a bundle from inputs and writes it to target.
//
// The file is written atomically (temp file + rename), so a failed build
// never leaves a partial bundle at target. Parent directories are created
// as needed.
func CreateFile(ctx context.Context, inputs []Input, target string, opts ...CreateOption) (Stats, error) {
	cfg := createConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Stats{}, fmt.Errorf("create bundle directory: %w", err)
	}
	if cfg.tempDir == "" {
		cfg.tempDir = dir
	}

	tmp, err := os.CreateTemp(dir, ".bundle-*")
	if err != nil {
		return Stats{}, err
	}
	tmpPath := tmp.Name()

	stats, err := create(ctx, inputs, tmp, &cfg)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Stats{}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Stats{}, err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return Stats{}, err
	}
	return stats, nil
}
