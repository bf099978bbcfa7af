package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bundlebench/bundle"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "textures", cfg.Bundle.Name)
	assert.Equal(t, 1000, cfg.Generator.Count)
	assert.Equal(t, 256, cfg.Generator.Width)
	assert.Equal(t, 16*time.Millisecond, cfg.Benchmark.Interval)
	assert.Equal(t, 1024, cfg.Benchmark.Samples)
	assert.Equal(t, "Assets/StreamingAssets", cfg.Paths.Runtime)
}

func TestLoader_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundlebench.yaml")
	content := `
generator:
  count: 50
  width: 32
benchmark:
  mode: whole
  priority: low
  interval: 5ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("BUNDLEBENCH_GENERATOR_WIDTH", "64")
	t.Setenv("BUNDLEBENCH_BENCHMARK_MIPMAPS", "true")

	cfg, err := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"benchmark.mode": "chunk"}),
	).Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Generator.Count)
	assert.Equal(t, 64, cfg.Generator.Width)
	assert.Equal(t, 256, cfg.Generator.Height)
	assert.Equal(t, "chunk", cfg.Benchmark.Mode)
	assert.Equal(t, "low", cfg.Benchmark.Priority)
	assert.Equal(t, 5*time.Millisecond, cfg.Benchmark.Interval)
	assert.True(t, cfg.Benchmark.MipMaps)
}

func TestLoader_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "BUNDLEBENCH_GENERATOR_COUNT=7\nBUNDLEBENCH_BENCHMARK_PRIORITY=high\nOTHER_VALUE=1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("BUNDLEBENCH_BENCHMARK_PRIORITY", "low")

	cfg, err := NewLoader(WithDotEnvFile(path)).Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Generator.Count)
	assert.Equal(t, "low", cfg.Benchmark.Priority)

	_, err = NewLoader(WithDotEnvFile(filepath.Join(dir, "absent.env"))).Load()
	require.NoError(t, err)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))).Load()
	require.Error(t, err)
}

func TestLoader_Invalid(t *testing.T) {
	_, err := NewLoader(WithOverrides(map[string]any{
		"generator.count": 0,
		"benchmark.mode":  "brotli",
		"log.format":      "xml",
	})).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generator.count")
	assert.Contains(t, err.Error(), "brotli")
	assert.Contains(t, err.Error(), "xml")
}

func TestBenchmarkConfig_Lists(t *testing.T) {
	b := BenchmarkConfig{Mode: "all", Priority: "low, high,low"}
	modes, err := b.Modes()
	require.NoError(t, err)
	assert.Equal(t, bundle.Compressions, modes)

	prios, err := b.Priorities()
	require.NoError(t, err)
	assert.Equal(t, []bundle.Priority{bundle.PriorityLow, bundle.PriorityHigh}, prios)

	b.Mode = "lz4,uncompressed"
	modes, err = b.Modes()
	require.NoError(t, err)
	assert.Equal(t, []bundle.Compression{bundle.CompressionChunk, bundle.CompressionStore}, modes)
}

func TestLogConfig_SlogLevel(t *testing.T) {
	level, err := LogConfig{Level: "debug"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = LogConfig{Level: "loud"}.SlogLevel()
	require.Error(t, err)
}
