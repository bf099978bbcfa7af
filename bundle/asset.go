package bundle

import (
	"context"
	"fmt"
	"io/fs"
	"time"
)

// AssetRequest is a pending group materialization.
//
// Poll Done once per frame, or call Wait. Group and Err report the outcome
// once Done returns true.
type AssetRequest struct {
	name  string
	done  chan struct{}
	group *TextureGroup
	err   error
}

func newAssetRequest(name string) *AssetRequest {
	return &AssetRequest{name: name, done: make(chan struct{})}
}

// failedRequest returns a request that has already completed with err.
func failedRequest(name string, err error) *AssetRequest {
	r := newAssetRequest(name)
	r.err = err
	close(r.done)
	return r
}

// Name returns the requested asset name.
func (r *AssetRequest) Name() string {
	return r.name
}

// Done reports whether the load has finished. It never blocks.
func (r *AssetRequest) Done() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Group returns the materialized group, or nil while pending or on failure.
func (r *AssetRequest) Group() *TextureGroup {
	if !r.Done() {
		return nil
	}
	return r.group
}

// Err returns the load error, or nil while pending or on success.
func (r *AssetRequest) Err() error {
	if !r.Done() {
		return nil
	}
	return r.err
}

// Wait blocks until the load finishes or ctx is done.
func (r *AssetRequest) Wait(ctx context.Context) (*TextureGroup, error) {
	select {
	case <-r.done:
		return r.group, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LoadAssetAsync starts materializing the named group asset and returns at
// once.
//
// Loads queue behind the bundle's priority: at most Priority.Workers groups
// are materialized at a time. A name that is missing, not a group, or
// requested after Unload yields a request that is already done with the
// corresponding error.
func (b *Bundle) LoadAssetAsync(name string) *AssetRequest {
	view, ok := b.idx.LookupView(name)
	if !ok {
		return failedRequest(name, &fs.PathError{Op: "load", Path: name, Err: ErrNotFound})
	}
	if t := view.Type(); t != AssetTypeGroup {
		return failedRequest(name, &fs.PathError{Op: "load", Path: name, Err: fmt.Errorf("%w: %s", ErrWrongType, t)})
	}

	b.mu.Lock()
	if b.unloaded {
		b.mu.Unlock()
		return failedRequest(name, &fs.PathError{Op: "load", Path: name, Err: ErrUnloaded})
	}
	b.inflight.Add(1)
	b.mu.Unlock()

	req := newAssetRequest(name)
	go func() {
		defer b.inflight.Done()
		defer close(req.done)

		if err := b.sem.Acquire(b.ctx, 1); err != nil {
			req.err = &fs.PathError{Op: "load", Path: name, Err: ErrUnloaded}
			return
		}
		defer b.sem.Release(1)

		start := time.Now()
		g, err := b.materialize(view)
		if err != nil {
			b.log().Debug("group load failed", "name", name, "error", err)
			req.err = &fs.PathError{Op: "load", Path: name, Err: err}
			return
		}
		b.log().Debug("group loaded", "name", name, "textures", g.Len(), "duration", time.Since(start))
		req.group = g
	}()
	return req
}

// LoadAsset materializes the named group asset and blocks until it is ready.
func (b *Bundle) LoadAsset(ctx context.Context, name string) (*TextureGroup, error) {
	return b.LoadAssetAsync(name).Wait(ctx)
}
