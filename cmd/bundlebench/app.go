package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/meigma/bundlebench"
	"github.com/meigma/bundlebench/internal/config"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// override binds a command-line flag to a configuration key.
type override struct {
	flag string
	key  string
}

var (
	globalOverrides = []override{
		{"textures", "paths.textures"},
		{"groups", "paths.groups"},
		{"build-dir", "paths.build"},
		{"runtime", "paths.runtime"},
		{"name", "bundle.name"},
		{"log-level", "log.level"},
		{"log-format", "log.format"},
	}
	generatorOverrides = []override{
		{"count", "generator.count"},
		{"width", "generator.width"},
		{"height", "generator.height"},
		{"workers", "generator.workers"},
	}
	bundleOverrides = []override{
		{"chunk-size", "bundle.chunksize"},
	}
	benchmarkOverrides = []override{
		{"mode", "benchmark.mode"},
		{"priority", "benchmark.priority"},
		{"repeat", "benchmark.repeat"},
		{"interval", "benchmark.interval"},
		{"samples", "benchmark.samples"},
		{"mipmaps", "benchmark.mipmaps"},
	}
)

// newApp creates the CLI application writing reports to stdout and logs to
// stderr.
func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "bundlebench",
		Usage:     "generate, pack and benchmark texture bundles",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			generateCommand(),
			assembleCommand(),
			buildCommand(),
			runCommand(),
			inspectCommand(),
			allCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"BUNDLEBENCH_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "dotenv file with BUNDLEBENCH_* settings (skipped when missing)",
			Value: ".env",
		},
		&cli.StringFlag{Name: "textures", Usage: "texture output directory"},
		&cli.StringFlag{Name: "groups", Usage: "group asset output directory"},
		&cli.StringFlag{Name: "build-dir", Usage: "bundle build directory (cleared on build)"},
		&cli.StringFlag{Name: "runtime", Usage: "directory benchmarked bundles are loaded from"},
		&cli.StringFlag{Name: "name", Usage: "bundle name"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-format", Usage: "text or json"},
	}
}

func generatorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "number of textures"},
		&cli.IntFlag{Name: "width", Usage: "texture width in pixels"},
		&cli.IntFlag{Name: "height", Usage: "texture height in pixels"},
		&cli.IntFlag{Name: "workers", Usage: "concurrent encoders (0 = GOMAXPROCS)"},
	}
}

func bundleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "chunk-size", Usage: "raw block size for chunk bundles"},
	}
}

func benchmarkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "store, whole, chunk, a comma list, or all"},
		&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "low, below-normal, normal, high, a comma list, or all"},
		&cli.IntFlag{Name: "repeat", Aliases: []string{"r"}, Usage: "runs per selection"},
		&cli.DurationFlag{Name: "interval", Usage: "frame interval"},
		&cli.IntFlag{Name: "samples", Usage: "per-run sample capacity"},
		&cli.BoolFlag{Name: "mipmaps", Usage: "build mip chains while materializing"},
		&cli.BoolFlag{Name: "json", Usage: "print results as JSON"},
	}
}

// env is the per-command state built from flags and configuration.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	runID  string
	stdout io.Writer
}

// setup loads the configuration, applying every set flag in groups as an
// override, and builds the logger.
func setup(c *cli.Context, groups ...[]override) (*env, error) {
	values := make(map[string]any)
	for _, g := range append([][]override{globalOverrides}, groups...) {
		for _, o := range g {
			if c.IsSet(o.flag) {
				values[o.key] = c.Value(o.flag)
			}
		}
	}
	opts := []config.Option{config.WithOverrides(values)}
	if path := c.String("env-file"); path != "" {
		opts = append(opts, config.WithDotEnvFile(path))
	}
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	cfg, err := config.NewLoader(opts...).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Log.Format, "json") {
		handler = slog.NewJSONHandler(c.App.ErrWriter, handlerOpts)
	} else {
		handler = slog.NewTextHandler(c.App.ErrWriter, handlerOpts)
	}

	runID := ulid.Make().String()
	return &env{
		cfg:    cfg,
		logger: slog.New(handler).With("run_id", runID, "command", c.Command.Name),
		runID:  runID,
		stdout: c.App.Writer,
	}, nil
}

// pipeline returns a Pipeline for e with opts appended to the defaults.
func (e *env) pipeline(opts ...bundlebench.PipelineOption) *bundlebench.Pipeline {
	return bundlebench.NewPipeline(e.cfg, append([]bundlebench.PipelineOption{
		bundlebench.PipelineWithLogger(e.logger),
	}, opts...)...)
}
