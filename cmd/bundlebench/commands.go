package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/meigma/bundlebench"
	"github.com/meigma/bundlebench/internal/benchmark"
	"github.com/meigma/bundlebench/internal/progress"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "write random-noise PNG textures",
		Flags: generatorFlags(),
		Action: func(c *cli.Context) error {
			e, err := setup(c, generatorOverrides)
			if err != nil {
				return err
			}
			stats, err := e.pipeline(bundlebench.PipelineWithProgress(logProgress(e))).Generate(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.stdout, "generated %d textures (%d bytes) in %s\n", stats.Files, stats.Bytes, e.cfg.Paths.Textures)
			return nil
		},
	}
}

func assembleCommand() *cli.Command {
	return &cli.Command{
		Name:  "assemble",
		Usage: "group textures into container assets",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			stats, err := e.pipeline(bundlebench.PipelineWithProgress(logProgress(e))).Assemble(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.stdout, "assembled %d groups from %d textures in %s\n", stats.Groups, stats.Textures, e.cfg.Paths.Groups)
			return nil
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "pack textures and groups into one bundle per compression mode",
		Flags: append(bundleFlags(),
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "all", Usage: "modes to build: a comma list or all"},
		),
		Action: func(c *cli.Context) error {
			e, err := setup(c, bundleOverrides)
			if err != nil {
				return err
			}
			sel := e.cfg.Benchmark
			sel.Mode = c.String("mode")
			modes, err := sel.Modes()
			if err != nil {
				return err
			}
			report, err := e.pipeline().Build(c.Context, modes...)
			if report != nil {
				if werr := writeBuildReport(e.stdout, report); werr != nil {
					return errors.Join(err, werr)
				}
			}
			return err
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "benchmark loading staged bundles",
		Flags: append(benchmarkFlags(), profileFlags()...),
		Action: func(c *cli.Context) error {
			e, err := setup(c, benchmarkOverrides)
			if err != nil {
				return err
			}
			return withProfiling(c, e, func(opts []bundlebench.PipelineOption) error {
				p := e.pipeline(opts...)
				sels, err := p.Selections()
				if err != nil {
					return err
				}
				results, err := p.Run(c.Context, sels)
				if werr := writeResults(e.stdout, results, c.Bool("json")); werr != nil {
					return errors.Join(err, werr)
				}
				return err
			})
		},
	}
}

func allCommand() *cli.Command {
	var flags []cli.Flag
	flags = append(flags, generatorFlags()...)
	flags = append(flags, bundleFlags()...)
	flags = append(flags, benchmarkFlags()...)
	flags = append(flags, profileFlags()...)
	return &cli.Command{
		Name:  "all",
		Usage: "generate, assemble, build and benchmark in one go",
		Flags: flags,
		Action: func(c *cli.Context) error {
			e, err := setup(c, generatorOverrides, bundleOverrides, benchmarkOverrides)
			if err != nil {
				return err
			}
			return withProfiling(c, e, func(opts []bundlebench.PipelineOption) error {
				report, results, err := e.pipeline(opts...).All(c.Context)
				var werrs []error
				if report != nil && !c.Bool("json") {
					werrs = append(werrs, writeBuildReport(e.stdout, report))
				}
				if report != nil {
					werrs = append(werrs, writeResults(e.stdout, results, c.Bool("json")))
				}
				return errors.Join(append([]error{err}, werrs...)...)
			})
		},
	}
}

// logProgress logs stage progress at debug level.
func logProgress(e *env) progress.Func {
	return func(ev progress.Event) {
		e.logger.Debug("progress",
			"stage", ev.Stage.String(),
			"done", ev.Done,
			"total", ev.Total,
			"path", ev.Path)
	}
}

// counterDisplay logs the live awake counter whenever it changes.
func counterDisplay(e *env) benchmark.FrameFunc {
	last := int64(-1)
	return func(b *benchmark.Benchmark) {
		if v := b.Counter().Load(); v != last {
			last = v
			e.logger.Debug(b.CounterLabel(), "state", b.State().String(), "status", b.Status())
		}
	}
}
