package benchmark

import (
	"context"
	"errors"

	"github.com/meigma/bundlebench/bundle"
	"github.com/meigma/bundlebench/internal/group"
)

// fakeOpener hands out a fakeOpen per call.
type fakeOpener struct {
	// openTicks is how many polls each open stays pending.
	openTicks int
	// loadTicks is how many polls each group load stays pending.
	loadTicks int
	// stagger makes load i stay pending i polls longer than load 0.
	stagger bool
	groups  []string
	failing map[string]bool
	fail    error

	calls   int
	paths   []string
	bundles []*fakeBundle
}

func (f *fakeOpener) OpenAsync(path string, _ Selection, counter *group.AwakeCounter) OpenOperation {
	f.calls++
	f.paths = append(f.paths, path)
	op := &fakeOpen{left: f.openTicks, err: f.fail}
	if f.fail == nil {
		op.bundle = &fakeBundle{
			groups:    f.groups,
			loadTicks: f.loadTicks,
			stagger:   f.stagger,
			failing:   f.failing,
			counter:   counter,
		}
		f.bundles = append(f.bundles, op.bundle)
	}
	return op
}

type fakeOpen struct {
	left   int
	bundle *fakeBundle
	err    error
}

func (o *fakeOpen) Done() bool {
	if o.left > 0 {
		o.left--
		return false
	}
	return true
}

func (o *fakeOpen) Bundle() Bundle {
	if o.bundle == nil {
		return nil
	}
	return o.bundle
}

func (o *fakeOpen) Err() error { return o.err }

func (o *fakeOpen) Wait(context.Context) (Bundle, error) {
	o.left = 0
	return o.Bundle(), o.err
}

type fakeBundle struct {
	groups    []string
	loadTicks int
	stagger   bool
	counter   *group.AwakeCounter
	failing   map[string]bool

	loads   []string
	unloads int
}

func (b *fakeBundle) AssetNamesOfType(t bundle.AssetType) []string {
	if t != bundle.AssetTypeGroup {
		return nil
	}
	return b.groups
}

func (b *fakeBundle) LoadAssetAsync(name string) Operation {
	left := b.loadTicks
	if b.stagger {
		left += len(b.loads)
	}
	b.loads = append(b.loads, name)
	return &fakeLoad{left: left, counter: b.counter, fail: b.failing[name]}
}

func (b *fakeBundle) Unload() error {
	b.unloads++
	return nil
}

// fakeLoad completes after a number of polls, incrementing the counter once
// on success.
type fakeLoad struct {
	left    int
	counter *group.AwakeCounter
	fail    bool
	done    bool
}

func (l *fakeLoad) Done() bool {
	if l.done {
		return true
	}
	if l.left > 0 {
		l.left--
		return false
	}
	l.done = true
	if !l.fail {
		l.counter.Inc()
	}
	return true
}

func (l *fakeLoad) Err() error {
	if l.done && l.fail {
		return errors.New("load failed")
	}
	return nil
}

func groupNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "groups/" + group.AssetName(i)
	}
	return names
}
