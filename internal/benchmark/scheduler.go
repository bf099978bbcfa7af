package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultInterval is the frame interval used when Scheduler.Interval is zero
// (about 60 frames per second).
const DefaultInterval = 16 * time.Millisecond

// ErrBusy is returned by Scheduler.RunOnce when the benchmark is already
// running.
var ErrBusy = errors.New("benchmark: already running")

// FrameFunc is called after every tick, standing in for a per-frame UI
// update.
type FrameFunc func(b *Benchmark)

// Scheduler is a frame loop that steps a Benchmark.
type Scheduler struct {
	// Interval is the time between frames. Zero uses DefaultInterval.
	Interval time.Duration

	// OnFrame, if set, is called after every tick.
	OnFrame FrameFunc
}

func (s Scheduler) interval() time.Duration {
	if s.Interval <= 0 {
		return DefaultInterval
	}
	return s.Interval
}

// Run ticks b once per frame until ctx is done.
func (s Scheduler) Run(ctx context.Context, b *Benchmark) error {
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.step(b)
		}
	}
}

// RunOnce starts a run for sel and ticks b until it is idle again.
//
// It returns the run's result, ErrOpenFailed if the bundle could not be
// opened, or ErrBusy if b was already running. Cancelling ctx stops the
// frame loop but leaves the run in progress; call Benchmark.Close to
// release it.
func (s Scheduler) RunOnce(ctx context.Context, b *Benchmark, sel Selection) (Result, error) {
	if !b.Start(sel) {
		return Result{}, ErrBusy
	}
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
			s.step(b)
			if b.State().Running() {
				continue
			}
			if res, ok := b.Result(); ok {
				return res, nil
			}
			return Result{}, fmt.Errorf("%w: %w", ErrOpenFailed, b.Err())
		}
	}
}

func (s Scheduler) step(b *Benchmark) {
	b.Tick()
	if s.OnFrame != nil {
		s.OnFrame(b)
	}
}
