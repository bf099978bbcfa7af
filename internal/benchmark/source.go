package benchmark

import (
	"context"
	"slices"

	"github.com/meigma/bundlebench/bundle"
	"github.com/meigma/bundlebench/internal/group"
)

// Opener starts opening a bundle for a run.
//
// The counter must be incremented once per group the opened bundle
// materializes.
type Opener interface {
	OpenAsync(path string, sel Selection, counter *group.AwakeCounter) OpenOperation
}

// OpenOperation is a pending bundle open.
type OpenOperation interface {
	// Done reports whether the open finished. It must not block.
	Done() bool

	// Bundle returns the opened bundle, or nil on failure.
	Bundle() Bundle

	// Err returns the open failure, if any.
	Err() error

	// Wait blocks until the open finishes.
	Wait(ctx context.Context) (Bundle, error)
}

// Bundle is an opened bundle owned by a run.
type Bundle interface {
	AssetNamesOfType(t bundle.AssetType) []string
	LoadAssetAsync(name string) Operation
	Unload() error
}

// Operation is a pending group load.
type Operation interface {
	Done() bool
	Err() error
}

// LoaderOpener opens bundles with a bundle.Loader.
type LoaderOpener struct {
	loader *bundle.Loader
	opts   []bundle.Option
}

// NewLoaderOpener returns an Opener backed by loader. The options are
// applied to every bundle, before the run's priority and counter.
func NewLoaderOpener(loader *bundle.Loader, opts ...bundle.Option) *LoaderOpener {
	if loader == nil {
		loader = bundle.NewLoader()
	}
	return &LoaderOpener{loader: loader, opts: opts}
}

// OpenAsync implements Opener.
func (o *LoaderOpener) OpenAsync(path string, sel Selection, counter *group.AwakeCounter) OpenOperation {
	opts := append(slices.Clone(o.opts), bundle.WithPriority(sel.Priority), bundle.WithAwakeCounter(counter))
	return openRequest{req: o.loader.OpenAsync(path, opts...)}
}

type openRequest struct {
	req *bundle.OpenRequest
}

func (o openRequest) Done() bool { return o.req.Done() }
func (o openRequest) Err() error { return o.req.Err() }

func (o openRequest) Bundle() Bundle {
	return wrap(o.req.Bundle())
}

func (o openRequest) Wait(ctx context.Context) (Bundle, error) {
	b, err := o.req.Wait(ctx)
	return wrap(b), err
}

// wrap avoids handing out a non-nil interface holding a nil pointer.
func wrap(b *bundle.Bundle) Bundle {
	if b == nil {
		return nil
	}
	return loadedBundle{b: b}
}

type loadedBundle struct {
	b *bundle.Bundle
}

func (l loadedBundle) AssetNamesOfType(t bundle.AssetType) []string {
	return l.b.AssetNamesOfType(t)
}

func (l loadedBundle) LoadAssetAsync(name string) Operation {
	return l.b.LoadAssetAsync(name)
}

func (l loadedBundle) Unload() error {
	return l.b.Unload()
}
