package bundlebench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meigma/bundlebench/bundle"
	"github.com/meigma/bundlebench/internal/benchmark"
	"github.com/meigma/bundlebench/internal/config"
	"github.com/meigma/bundlebench/internal/group"
	"github.com/meigma/bundlebench/internal/imagegen"
	"github.com/meigma/bundlebench/internal/packager"
	"github.com/meigma/bundlebench/internal/progress"
)

// Re-export the stage results for the public API.
type (
	// Selection is a compression mode and priority pair to benchmark.
	Selection = benchmark.Selection

	// Result is the outcome of one benchmark run.
	Result = benchmark.Result

	// BuildReport summarizes a packaging run.
	BuildReport = packager.Report
)

// Pipeline runs the bundlebench stages against one configuration.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	progress  progress.Func
	observers benchmark.Observers
	onFrame   benchmark.FrameFunc
}

// NewPipeline returns a Pipeline for cfg. A nil cfg uses config.Default.
func NewPipeline(cfg *config.Config, opts ...PipelineOption) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Config returns the configuration the pipeline runs with.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Generate writes the configured number of textures.
func (p *Pipeline) Generate(ctx context.Context) (imagegen.Stats, error) {
	g := p.cfg.Generator
	return imagegen.Generate(ctx, imagegen.Options{
		Dir:      p.cfg.Paths.Textures,
		Count:    g.Count,
		Width:    g.Width,
		Height:   g.Height,
		Workers:  g.Workers,
		Progress: p.progress,
		Logger:   p.logger.With("stage", progress.StageGenerating.String()),
	})
}

// Assemble groups the generated textures into container assets.
func (p *Pipeline) Assemble(ctx context.Context) (group.AssembleStats, error) {
	return group.Assemble(ctx, group.AssembleOptions{
		SourceDir: p.cfg.Paths.Textures,
		OutputDir: p.cfg.Paths.Groups,
		Progress:  p.progress,
		Logger:    p.logger.With("stage", progress.StageAssembling.String()),
	})
}

// Build packs the assets into bundles for modes, or for every mode when
// modes is empty. The report is nil only when nothing was built.
func (p *Pipeline) Build(ctx context.Context, modes ...bundle.Compression) (*BuildReport, error) {
	return packager.Build(ctx, packager.Options{
		TexturesDir: p.cfg.Paths.Textures,
		GroupsDir:   p.cfg.Paths.Groups,
		BuildDir:    p.cfg.Paths.Build,
		RuntimeDir:  p.cfg.Paths.Runtime,
		Name:        p.cfg.Bundle.Name,
		Modes:       modes,
		ChunkSize:   p.cfg.Bundle.ChunkSize,
		Progress:    p.progress,
		Logger:      p.logger.With("stage", progress.StagePacking.String()),
	})
}

// Selections returns every configured mode and priority combination, modes
// outermost.
func (p *Pipeline) Selections() ([]Selection, error) {
	modes, err := p.cfg.Benchmark.Modes()
	if err != nil {
		return nil, err
	}
	prios, err := p.cfg.Benchmark.Priorities()
	if err != nil {
		return nil, err
	}
	sels := make([]Selection, 0, len(modes)*len(prios))
	for _, m := range modes {
		for _, pr := range prios {
			sels = append(sels, Selection{Mode: m, Priority: pr})
		}
	}
	return sels, nil
}

// Run benchmarks each selection the configured number of times.
//
// Runs are sequential and share one Benchmark, so each run releases the
// previous run's bundle. A run whose bundle cannot be opened is logged and
// skipped; the returned error joins those failures. Context cancellation
// stops the remaining runs.
func (p *Pipeline) Run(ctx context.Context, sels []Selection) ([]Result, error) {
	loader := bundle.NewLoader(bundle.LoaderWithLogger(p.logger))
	b := benchmark.New(p.cfg.Paths.Runtime,
		benchmark.WithName(p.cfg.Bundle.Name),
		benchmark.WithOpener(benchmark.NewLoaderOpener(loader,
			bundle.WithMipMaps(p.cfg.Benchmark.MipMaps),
			bundle.WithLogger(p.logger),
		)),
		benchmark.WithSampleCapacity(p.cfg.Benchmark.Samples),
		benchmark.WithObserver(p.observers),
		benchmark.WithLogger(p.logger),
	)
	sched := benchmark.Scheduler{Interval: p.cfg.Benchmark.Interval, OnFrame: p.onFrame}

	repeat := max(p.cfg.Benchmark.Repeat, 1)
	results := make([]Result, 0, len(sels)*repeat)
	var errs []error
	for _, sel := range sels {
		for i := range repeat {
			res, err := sched.RunOnce(ctx, b, sel)
			switch {
			case err == nil:
				results = append(results, res)
			case errors.Is(err, benchmark.ErrOpenFailed):
				p.logger.Warn("benchmark run failed", "selection", sel.String(), "run", i+1, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", sel, err))
			default:
				errs = append(errs, err)
				return results, errors.Join(append(errs, b.Close())...)
			}
		}
	}
	errs = append(errs, b.Close())
	return results, errors.Join(errs...)
}

// All generates, assembles and builds the assets, then benchmarks every
// configured selection.
//
// A mode that failed to build is still benchmarked, and fails at open.
func (p *Pipeline) All(ctx context.Context) (*BuildReport, []Result, error) {
	if _, err := p.Generate(ctx); err != nil {
		return nil, nil, fmt.Errorf("generate: %w", err)
	}
	if _, err := p.Assemble(ctx); err != nil {
		return nil, nil, fmt.Errorf("assemble: %w", err)
	}
	sels, err := p.Selections()
	if err != nil {
		return nil, nil, err
	}
	report, buildErr := p.Build(ctx, modesOf(sels)...)
	if report == nil {
		return nil, nil, fmt.Errorf("build: %w", buildErr)
	}
	results, runErr := p.Run(ctx, sels)
	return report, results, errors.Join(buildErr, runErr)
}

// modesOf returns the distinct modes in sels, always including store so the
// compression ratio has a baseline.
func modesOf(sels []Selection) []bundle.Compression {
	var modes []bundle.Compression
	for _, m := range bundle.Compressions {
		if m == bundle.CompressionStore {
			modes = append(modes, m)
			continue
		}
		for _, s := range sels {
			if s.Mode == m {
				modes = append(modes, m)
				break
			}
		}
	}
	return modes
}
