package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"
	"github.com/urfave/cli/v2"

	"github.com/meigma/bundlebench"
	"github.com/meigma/bundlebench/internal/metrics"
)

func profileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics and pprof on this address"},
		&cli.StringFlag{Name: "cpuprofile", Usage: "write a CPU profile to this file"},
		&cli.StringFlag{Name: "memprofile", Usage: "write a heap profile to this file after the runs"},
		&cli.StringFlag{Name: "trace", Usage: "write an execution trace to this file"},
		&cli.StringFlag{Name: "fgprofile", Usage: "write a wall-clock fgprof profile to this file"},
	}
}

// withProfiling runs fn with the profilers and metrics server requested by
// the command's flags active, passing the pipeline options they need.
//
//nolint:gocognit // one block per profiler
func withProfiling(c *cli.Context, e *env, fn func([]bundlebench.PipelineOption) error) (err error) {
	opts := []bundlebench.PipelineOption{bundlebench.PipelineWithFrameFunc(counterDisplay(e))}

	if addr := c.String("metrics-addr"); addr != "" {
		rec := metrics.NewRecorder(nil)
		stop, serr := serveMetrics(addr, rec, e)
		if serr != nil {
			return serr
		}
		defer stop()
		opts = append(opts, bundlebench.PipelineWithObserver(rec))
	}

	if path := c.String("fgprofile"); path != "" {
		f, ferr := os.Create(path) //nolint:gosec // user-supplied output path
		if ferr != nil {
			return ferr
		}
		stopFG := fgprof.Start(f, fgprof.FormatPprof)
		defer func() {
			err = errors.Join(err, stopFG(), f.Close())
		}()
	}

	if path := c.String("cpuprofile"); path != "" {
		f, ferr := os.Create(path) //nolint:gosec // user-supplied output path
		if ferr != nil {
			return ferr
		}
		if ferr = pprof.StartCPUProfile(f); ferr != nil {
			_ = f.Close()
			return ferr
		}
		defer func() {
			pprof.StopCPUProfile()
			err = errors.Join(err, f.Close())
		}()
	}

	if path := c.String("trace"); path != "" {
		f, ferr := os.Create(path) //nolint:gosec // user-supplied output path
		if ferr != nil {
			return ferr
		}
		if ferr = trace.Start(f); ferr != nil {
			_ = f.Close()
			return ferr
		}
		defer func() {
			trace.Stop()
			err = errors.Join(err, f.Close())
		}()
	}

	if err = fn(opts); err != nil {
		return err
	}

	if path := c.String("memprofile"); path != "" {
		return writeHeapProfile(path)
	}
	return nil
}

func writeHeapProfile(path string) error {
	runtime.GC()
	f, err := os.Create(path) //nolint:gosec // user-supplied output path
	if err != nil {
		return err
	}
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// serveMetrics starts an HTTP server exposing /metrics and /debug/pprof/ and
// returns a function that shuts it down.
func serveMetrics(addr string, rec *metrics.Recorder, e *env) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	mux.HandleFunc("/debug/pprof/", httppprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", httppprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", httppprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", httppprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", httppprof.Trace)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	e.logger.Info("metrics listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
