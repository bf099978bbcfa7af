// Package config loads bundlebench settings.
//
// Sources are applied in order, later ones overriding earlier ones:
// built-in defaults, an optional YAML file, an optional .env file,
// BUNDLEBENCH_* environment variables, then command-line overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meigma/bundlebench/bundle"
)

// Config holds every setting.
type Config struct {
	Paths     PathsConfig     `koanf:"paths"`
	Bundle    BundleConfig    `koanf:"bundle"`
	Generator GeneratorConfig `koanf:"generator"`
	Benchmark BenchmarkConfig `koanf:"benchmark"`
	Log       LogConfig       `koanf:"log"`
}

// PathsConfig locates the working directories.
type PathsConfig struct {
	// Textures receives generated PNGs.
	Textures string `koanf:"textures"`

	// Groups receives assembled group assets.
	Groups string `koanf:"groups"`

	// Build is cleared and rebuilt by every packaging run.
	Build string `koanf:"build"`

	// Runtime holds the bundles the benchmark opens.
	Runtime string `koanf:"runtime"`
}

// BundleConfig controls packaging.
type BundleConfig struct {
	Name      string `koanf:"name"`
	ChunkSize int    `koanf:"chunksize"`
}

// GeneratorConfig controls texture generation.
type GeneratorConfig struct {
	Count   int `koanf:"count"`
	Width   int `koanf:"width"`
	Height  int `koanf:"height"`
	Workers int `koanf:"workers"`
}

// BenchmarkConfig controls runtime benchmark runs.
type BenchmarkConfig struct {
	// Mode is a compression mode name, a comma-separated list, or "all".
	Mode string `koanf:"mode"`

	// Priority is a priority name, a comma-separated list, or "all".
	Priority string `koanf:"priority"`

	// Interval is the frame interval.
	Interval time.Duration `koanf:"interval"`

	// Samples is the per-run sample buffer capacity.
	Samples int `koanf:"samples"`

	// Repeat is the number of runs per selection.
	Repeat int `koanf:"repeat"`

	// MipMaps builds mip chains while materializing.
	MipMaps bool `koanf:"mipmaps"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level"`

	// Format is text or json.
	Format string `koanf:"format"`
}

// defaults returns the built-in settings as koanf keys.
func defaults() map[string]any {
	return map[string]any{
		"paths.textures":     "Assets/DummyTextures",
		"paths.groups":       "Assets/DummyTextureGroups",
		"paths.build":        "AssetBundles",
		"paths.runtime":      "Assets/StreamingAssets",
		"bundle.name":        "textures",
		"bundle.chunksize":   128 << 10,
		"generator.count":    1000,
		"generator.width":    256,
		"generator.height":   256,
		"generator.workers":  0,
		"benchmark.mode":     "store",
		"benchmark.priority": "normal",
		"benchmark.interval": "16ms",
		"benchmark.samples":  1024,
		"benchmark.repeat":   1,
		"benchmark.mipmaps":  false,
		"log.level":          "info",
		"log.format":         "text",
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Paths.Textures != "", "paths.textures is required")
	check(c.Paths.Groups != "", "paths.groups is required")
	check(c.Paths.Build != "", "paths.build is required")
	check(c.Paths.Runtime != "", "paths.runtime is required")
	check(c.Bundle.Name != "" && !strings.ContainsAny(c.Bundle.Name, `/\`), "bundle.name %q must be a plain file name", c.Bundle.Name)
	check(c.Bundle.ChunkSize >= 0, "bundle.chunksize must not be negative")
	check(c.Generator.Count > 0, "generator.count must be positive")
	check(c.Generator.Width > 0 && c.Generator.Height > 0, "generator size %dx%d must be positive", c.Generator.Width, c.Generator.Height)
	check(c.Generator.Workers >= 0, "generator.workers must not be negative")
	check(c.Benchmark.Interval > 0, "benchmark.interval must be positive")
	check(c.Benchmark.Samples > 0, "benchmark.samples must be positive")
	check(c.Benchmark.Repeat > 0, "benchmark.repeat must be positive")

	if _, err := c.Benchmark.Modes(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Benchmark.Priorities(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Modes parses Mode. "all" selects every mode in build order.
func (b BenchmarkConfig) Modes() ([]bundle.Compression, error) {
	return parseList(b.Mode, bundle.Compressions, bundle.ParseCompression)
}

// Priorities parses Priority. "all" selects every level, lowest first.
func (b BenchmarkConfig) Priorities() ([]bundle.Priority, error) {
	return parseList(b.Priority, bundle.Priorities, bundle.ParsePriority)
}

func parseList[T comparable](s string, all []T, parse func(string) (T, error)) ([]T, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return append([]T(nil), all...), nil
	}
	var out []T
	seen := make(map[T]bool)
	for part := range strings.SplitSeq(s, ",") {
		v, err := parse(part)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
