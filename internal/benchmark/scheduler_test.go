package benchmark

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/bundlebench/bundle"
	"github.com/meigma/bundlebench/internal/packager"
	"github.com/meigma/bundlebench/internal/testutil"
)

func TestScheduler_RunOnceEveryMode(t *testing.T) {
	t.Parallel()

	c := testutil.NewCorpus(t, 45)
	runtimeDir := filepath.Join(c.Root, "runtime")
	_, err := packager.Build(context.Background(), packager.Options{
		TexturesDir: c.TexturesDir,
		GroupsDir:   c.GroupsDir,
		BuildDir:    filepath.Join(c.Root, "build"),
		RuntimeDir:  runtimeDir,
	})
	require.NoError(t, err)

	b := New(runtimeDir)
	t.Cleanup(func() { _ = b.Close() })

	frames := 0
	sched := Scheduler{Interval: time.Millisecond, OnFrame: func(*Benchmark) { frames++ }}
	var storeSize int64
	for _, mode := range bundle.Compressions {
		for _, prio := range bundle.Priorities {
			res, err := sched.RunOnce(context.Background(), b, Selection{Mode: mode, Priority: prio})
			require.NoError(t, err, "%s/%s", mode, prio)
			assert.Equal(t, 5, res.Groups)
			assert.Equal(t, int64(5), res.Awake)
			assert.Zero(t, res.FailedLoads)
			assert.LessOrEqual(t, res.OpenLatency, res.TotalLatency)
			assert.Positive(t, res.FileSize)
			if mode == bundle.CompressionStore {
				storeSize = res.FileSize
				assert.Equal(t, 1.0, res.Ratio)
			}
			assert.Equal(t, storeSize, res.StoreSize)
			assert.Equal(t, StateIdle, b.State())
		}
	}
	assert.Positive(t, frames)
}

func TestScheduler_RunOnceOpenFailure(t *testing.T) {
	t.Parallel()

	b := New(t.TempDir())
	res, err := Scheduler{Interval: time.Millisecond}.RunOnce(context.Background(), b, storeSel)
	require.ErrorIs(t, err, ErrOpenFailed)
	assert.Zero(t, res.Groups)
	assert.Equal(t, StatusFailed, b.Status())
	assert.Zero(t, b.Counter().Load())
}

func TestScheduler_RunOnceBusy(t *testing.T) {
	t.Parallel()

	b := New(t.TempDir(), WithOpener(&fakeOpener{openTicks: 1000}))
	require.True(t, b.Start(storeSel))
	_, err := Scheduler{}.RunOnce(context.Background(), b, storeSel)
	require.ErrorIs(t, err, ErrBusy)
}

func TestScheduler_ContextStopsLoop(t *testing.T) {
	t.Parallel()

	b := New(t.TempDir(), WithOpener(&fakeOpener{openTicks: 1 << 30}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Scheduler{Interval: time.Millisecond}.RunOnce(ctx, b, storeSel)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateOpening, b.State())

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel2()
	require.ErrorIs(t, Scheduler{Interval: time.Millisecond}.Run(ctx2, b), context.DeadlineExceeded)
	require.NoError(t, b.Close())
}
