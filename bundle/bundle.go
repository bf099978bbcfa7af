package bundle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/meigma/bundlebench/bundle/internal/codec"
	"github.com/meigma/bundlebench/bundle/internal/index"
	"github.com/meigma/bundlebench/internal/group"
)

// Bundle is an opened bundle file.
//
// A Bundle holds its file open until Unload. All methods are safe for
// concurrent use.
type Bundle struct {
	path     string
	f        *os.File
	idx      *index.Index
	data     codec.Section
	fileSize int64
	cfg      config
	sem      *semaphore.Weighted

	// ctx is canceled by Unload to abandon queued loads.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex // guards unloaded and inflight.Add
	unloaded   bool
	inflight   sync.WaitGroup
	unloadOnce sync.Once
	unloadErr  error

	texMu    sync.Mutex
	textures map[string]*group.Texture
	texGroup singleflight.Group
}

// log returns the logger, falling back to a discard logger if nil.
func (b *Bundle) log() *slog.Logger {
	if b.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.cfg.logger
}

// Path returns the file the bundle was opened from.
func (b *Bundle) Path() string {
	return b.path
}

// Name returns the bundle name recorded at build time.
func (b *Bundle) Name() string {
	return b.idx.Name()
}

// Compression returns how the data section is stored.
func (b *Bundle) Compression() Compression {
	return b.idx.Compression()
}

// Priority returns the materialization priority the bundle was opened with.
func (b *Bundle) Priority() Priority {
	return b.cfg.priority
}

// Size returns the size of the bundle file in bytes.
func (b *Bundle) Size() int64 {
	return b.fileSize
}

// DataSize returns the decoded size of the data section.
func (b *Bundle) DataSize() uint64 {
	return b.idx.DataSize()
}

// Len returns the number of assets in the bundle.
func (b *Bundle) Len() int {
	return b.idx.Len()
}

// AssetNames returns every asset name, sorted.
func (b *Bundle) AssetNames() []string {
	names := make([]string, 0, b.idx.Len())
	for view := range b.idx.EntriesView() {
		names = append(names, view.Path())
	}
	return names
}

// AssetNamesOfType returns the names of assets of type t, sorted.
func (b *Bundle) AssetNamesOfType(t AssetType) []string {
	var names []string
	for view := range b.idx.EntriesOfType(t) {
		names = append(names, view.Path())
	}
	return names
}

// Entry returns a read-only view of the named asset's index entry.
//
// The returned view is only valid while the Bundle remains alive.
func (b *Bundle) Entry(name string) (EntryView, bool) {
	return b.idx.LookupView(name)
}

// Entries returns an iterator over all entries as read-only views.
func (b *Bundle) Entries() iter.Seq[EntryView] {
	return b.idx.EntriesView()
}

// ReadFile reads the named asset and verifies it against its hash.
func (b *Bundle) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	if b.ctx.Err() != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: ErrUnloaded}
	}
	view, ok := b.idx.LookupView(name)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: ErrNotFound}
	}
	data, err := b.read(view)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

// read returns the content of view from the decoded data stream.
func (b *Bundle) read(view EntryView) ([]byte, error) {
	size := view.DataSize()
	if b.cfg.maxFileSize > 0 && size > b.cfg.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	off := view.DataOffset()
	if off > uint64(b.data.Size()) || size > uint64(b.data.Size())-off { //nolint:gosec // Size is non-negative
		return nil, fmt.Errorf("%w: entry range [%d, %d) outside data section", ErrCorrupt, off, off+size)
	}

	buf := make([]byte, size)
	n, err := b.data.ReadAt(buf, int64(off)) //nolint:gosec // bounded by data size
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		return nil, err
	}
	sum := sha256.Sum256(buf)
	if !bytes.Equal(sum[:], view.HashBytes()) {
		return nil, ErrHashMismatch
	}
	return buf, nil
}

// Unloaded reports whether Unload has been called.
func (b *Bundle) Unloaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unloaded
}

// Unload releases the bundle.
//
// Queued loads fail with ErrUnloaded; loads already materializing are
// waited for. The file is closed exactly once: later calls return the
// result of the first.
func (b *Bundle) Unload() error {
	b.unloadOnce.Do(func() {
		b.mu.Lock()
		b.unloaded = true
		b.mu.Unlock()

		b.cancel()
		b.inflight.Wait()

		b.texMu.Lock()
		b.textures = nil
		b.texMu.Unlock()

		b.unloadErr = b.f.Close()
		b.log().Debug("bundle unloaded", "path", b.path, "name", b.Name())
	})
	return b.unloadErr
}
