package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/meigma/bundlebench/bundle"
	"github.com/meigma/bundlebench/internal/group"
)

// Status lines shown while and after a run.
const (
	StatusLoading = "Loading..."
	StatusFailed  = "Failed to load asset bundle"
	StatusAborted = "Load aborted"
)

// DefaultName is the bundle name used when WithName is not set.
const DefaultName = "textures"

// ErrOpenFailed is returned by Scheduler.RunOnce when the bundle could not
// be opened.
var ErrOpenFailed = errors.New("benchmark: failed to load asset bundle")

// Option configures a Benchmark.
type Option func(*Benchmark)

// WithName sets the bundle name; the file for a mode is
// bundle.FileName(name, mode) in the runtime directory.
func WithName(name string) Option {
	return func(b *Benchmark) {
		b.name = name
	}
}

// WithOpener sets how bundles are opened (default: a LoaderOpener over a
// fresh bundle.Loader).
func WithOpener(o Opener) Option {
	return func(b *Benchmark) {
		b.opener = o
	}
}

// WithCounter sets the awake counter shared with the loader.
func WithCounter(c *group.AwakeCounter) Option {
	return func(b *Benchmark) {
		b.counter = c
	}
}

// WithSampleCapacity sets the number of frames sampled per run.
func WithSampleCapacity(n int) Option {
	return func(b *Benchmark) {
		b.samples = NewSampler(n)
	}
}

// WithObserver sets a run lifecycle observer.
func WithObserver(o Observer) Option {
	return func(b *Benchmark) {
		b.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Benchmark) {
		b.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Benchmark) {
		b.now = now
	}
}

// Benchmark is the runtime benchmark state machine.
//
// A Benchmark is driven from a single goroutine: Start, Tick, Close and the
// accessors must not be called concurrently. The loads it issues run in the
// background and are only observed through polling.
type Benchmark struct {
	dir      string
	name     string
	opener   Opener
	counter  *group.AwakeCounter
	samples  *Sampler
	observer Observer
	logger   *slog.Logger
	now      func() time.Time

	state       State
	status      string
	sel         Selection
	start       time.Time
	openLatency time.Duration
	open        OpenOperation
	bundle      Bundle
	requests    []Operation
	frame       int
	result      *Result
	err         error
}

// New returns an idle Benchmark that loads bundles from the runtime
// directory dir.
func New(dir string, opts ...Option) *Benchmark {
	b := &Benchmark{dir: dir, name: DefaultName}
	for _, opt := range opts {
		opt(b)
	}
	if b.opener == nil {
		b.opener = NewLoaderOpener(nil, bundle.WithLogger(b.logger))
	}
	if b.counter == nil {
		b.counter = &group.AwakeCounter{}
	}
	if b.samples == nil {
		b.samples = NewSampler(0)
	}
	if b.observer == nil {
		b.observer = Observers(nil)
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// log returns the logger, falling back to a discard logger if nil.
func (b *Benchmark) log() *slog.Logger {
	if b.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.logger
}

// State returns the current state.
func (b *Benchmark) State() State {
	return b.state
}

// Status returns the user-facing status line: empty before the first run,
// StatusLoading while running, then the result label or StatusFailed.
// A run interrupted by Close reports StatusAborted.
func (b *Benchmark) Status() string {
	return b.status
}

// Counter returns the awake counter.
func (b *Benchmark) Counter() *group.AwakeCounter {
	return b.counter
}

// CounterLabel returns the live counter display.
func (b *Benchmark) CounterLabel() string {
	return fmt.Sprintf("Awake Counter: %d", b.counter.Load())
}

// Frame returns the number of frames spent materializing in the current or
// last run.
func (b *Benchmark) Frame() int {
	return b.frame
}

// Result returns the result of the last completed run.
func (b *Benchmark) Result() (Result, bool) {
	if b.result == nil {
		return Result{}, false
	}
	return *b.result, true
}

// Err returns the open failure of the last run, if it failed.
func (b *Benchmark) Err() error {
	return b.err
}

// Path returns the bundle file for mode.
func (b *Benchmark) Path(mode bundle.Compression) string {
	return filepath.Join(b.dir, bundle.FileName(b.name, mode))
}

// Start begins a run for sel.
//
// Start is ignored, returning false, unless the benchmark is idle. Otherwise
// it releases the bundle left by the previous run, resets the counter and
// samples, and issues the bundle open. The open is first polled on the next
// Tick.
func (b *Benchmark) Start(sel Selection) bool {
	if b.state != StateIdle {
		b.log().Debug("start ignored; benchmark running", "state", b.state.String())
		return false
	}
	_ = b.release()

	b.counter.Reset()
	b.samples.Reset()
	b.frame = 0
	b.requests = nil
	b.result = nil
	b.err = nil
	b.openLatency = 0

	b.sel = sel
	b.status = StatusLoading
	b.start = b.now()
	b.state = StateOpening

	path := b.Path(sel.Mode)
	b.log().Info("benchmark started", "mode", sel.Mode.String(), "priority", sel.Priority.String(), "path", path)
	b.observer.RunStarted(sel)
	b.open = b.opener.OpenAsync(path, sel, b.counter)
	return true
}

// Tick advances the run by one frame.
func (b *Benchmark) Tick() {
	switch b.state {
	case StateOpening:
		b.tickOpening()
	case StateMaterializing:
		b.tickMaterializing()
	}
}

func (b *Benchmark) tickOpening() {
	if !b.open.Done() {
		return
	}
	op := b.open
	b.open = nil

	bnd, err := op.Bundle(), op.Err()
	if err == nil && bnd == nil {
		err = errors.New("no bundle returned")
	}
	if err != nil {
		b.status = StatusFailed
		b.err = err
		b.state = StateIdle
		b.log().Error("benchmark failed", "mode", b.sel.Mode.String(), "error", err)
		b.observer.RunFailed(b.sel, err)
		return
	}

	b.bundle = bnd
	b.openLatency = b.now().Sub(b.start)

	names := bnd.AssetNamesOfType(bundle.AssetTypeGroup)
	b.log().Info(fmt.Sprintf("Found %d container assets", len(names)),
		"groups", len(names), "open_latency", b.openLatency)
	b.requests = make([]Operation, 0, len(names))
	for _, name := range names {
		b.requests = append(b.requests, bnd.LoadAssetAsync(name))
	}

	b.state = StateMaterializing
	b.tickMaterializing()
}

func (b *Benchmark) tickMaterializing() {
	if b.pending() > 0 {
		c := b.counter.Load()
		b.samples.Record(b.frame, c)
		b.log().Debug(fmt.Sprintf("Frame %d: Awake Counter = %d", b.frame, c))
		b.frame++
		return
	}

	total := b.now().Sub(b.start)
	b.state = StateReporting
	b.report(total)
	b.state = StateIdle
}

// pending returns the number of loads not yet done.
func (b *Benchmark) pending() int {
	n := 0
	for _, r := range b.requests {
		if !r.Done() {
			n++
		}
	}
	return n
}

func (b *Benchmark) report(total time.Duration) {
	failed := 0
	for _, r := range b.requests {
		if err := r.Err(); err != nil {
			failed++
			b.log().Warn("group load failed", "error", err)
		}
	}

	size := fileSize(b.Path(b.sel.Mode))
	storeSize := size
	if b.sel.Mode != bundle.CompressionStore {
		storeSize = fileSize(b.Path(bundle.CompressionStore))
	}

	samples := b.samples.Values()
	deltas := Deltas(samples)
	res := Result{
		Mode:           b.sel.Mode.String(),
		Priority:       b.sel.Priority.String(),
		OpenLatency:    b.openLatency,
		TotalLatency:   total,
		Groups:         len(b.requests),
		Awake:          b.counter.Load(),
		FailedLoads:    failed,
		Frames:         b.frame,
		Samples:        samples,
		Deltas:         deltas,
		MaxDelta:       MaxDelta(deltas),
		DroppedSamples: b.samples.Dropped(),
		FileSize:       size,
		StoreSize:      storeSize,
		Ratio:          Ratio(size, storeSize),
	}
	b.result = &res
	b.status = res.Label()

	b.log().Info(fmt.Sprintf("Benchmark completed: %dms, Awake Counter: %d", total.Milliseconds(), res.Awake),
		"mode", res.Mode,
		"priority", res.Priority,
		"frames", res.Frames,
		"max_delta", res.MaxDelta,
		"ratio", res.Ratio,
		"failed_loads", failed)
	b.observer.RunFinished(res)
}

// Close releases the bundle owned by the benchmark, whatever its state.
//
// An open still in flight is waited for so its bundle can be released too.
// Close leaves the benchmark idle; it may be started again.
func (b *Benchmark) Close() error {
	if b.state != StateIdle {
		b.status = StatusAborted
	}
	var errs []error
	if b.open != nil {
		bnd, err := b.open.Wait(context.Background())
		b.open = nil
		if err == nil && bnd != nil {
			errs = append(errs, bnd.Unload())
		}
	}
	errs = append(errs, b.release())
	b.requests = nil
	b.state = StateIdle
	return errors.Join(errs...)
}

// release unloads the bundle from the previous run, if any.
func (b *Benchmark) release() error {
	if b.bundle == nil {
		return nil
	}
	err := b.bundle.Unload()
	b.bundle = nil
	if err != nil {
		b.log().Warn("bundle unload failed", "error", err)
	}
	return err
}

// fileSize returns the size of the file at path, or 0 if it cannot be
// stat'ed.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
