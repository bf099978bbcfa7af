package bundle

import (
	"cmp"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/meigma/bundlebench/bundle/internal/bundletype"
	"github.com/meigma/bundlebench/bundle/internal/codec"
	"github.com/meigma/bundlebench/bundle/internal/index"
	"github.com/meigma/bundlebench/bundle/internal/platform"
	"github.com/meigma/bundlebench/internal/progress"
)

// Input is one source directory packed into a bundle.
type Input struct {
	// Dir is the directory walked for regular files.
	Dir string

	// Prefix is prepended to each file's slash-separated path
	// (e.g., "textures"). Empty packs files at the bundle root.
	Prefix string

	// Type is recorded in the manifest for every file from Dir.
	Type AssetType

	// Ext, when set, restricts the input to files with this extension
	// (e.g., ".png"). The comparison ignores case.
	Ext string
}

// Stats summarizes a created bundle.
type Stats struct {
	// Entries is the number of assets written.
	Entries int

	// Textures and Groups count the entries of each type.
	Textures int
	Groups   int

	// RawSize is the decoded size of the data section.
	RawSize uint64

	// StoredSize is the size of the data section as written.
	StoredSize uint64

	// IndexSize is the size of the encoded index.
	IndexSize int
}

// Create builds a bundle from inputs and writes it to w.
//
// Each input directory is walked recursively for regular files. Symbolic
// links are skipped. Assets are written in path-sorted order; the data
// section is staged in a temporary file because the header and index must
// precede it.
//
// The context can be used to cancel a long-running build.
func Create(ctx context.Context, inputs []Input, w io.Writer, opts ...CreateOption) (Stats, error) {
	cfg := createConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return create(ctx, inputs, w, &cfg)
}

func create(ctx context.Context, inputs []Input, w io.Writer, cfg *createConfig) (Stats, error) {
	if !cfg.compression.Valid() {
		return Stats{}, fmt.Errorf("bundle: invalid compression %d", cfg.compression)
	}
	b := &builder{cfg: cfg}
	b.log().Info("creating bundle", "name", cfg.name, "inputs", len(inputs), "compression", cfg.compression.String())

	sources, release, err := b.enumerate(ctx, inputs)
	if err != nil {
		return Stats{}, err
	}
	defer release()

	staged, err := os.CreateTemp(cfg.tempDir, ".bundle-data-*")
	if err != nil {
		return Stats{}, fmt.Errorf("create staging file: %w", err)
	}
	defer func() {
		staged.Close()
		os.Remove(staged.Name())
	}()

	entries, cw, dataHash, err := b.writeData(ctx, sources, staged)
	if err != nil {
		return Stats{}, err
	}

	indexData := index.Build(entries, index.Meta{
		Name:        cfg.name,
		Compression: cfg.compression,
		ChunkSize:   cw.ChunkSize(),
		Chunks:      cw.Chunks(),
		DataSize:    cw.RawSize(),
		DataHash:    dataHash,
	})

	h := header{version: FormatVersion, compression: cfg.compression, indexLen: uint64(len(indexData))}
	if _, err := w.Write(h.marshal()); err != nil {
		return Stats{}, fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(indexData); err != nil {
		return Stats{}, fmt.Errorf("write index: %w", err)
	}
	if _, err := staged.Seek(0, io.SeekStart); err != nil {
		return Stats{}, err
	}
	n, err := io.Copy(w, staged)
	if err != nil {
		return Stats{}, fmt.Errorf("write data: %w", err)
	}
	if uint64(n) != cw.StoredSize() { //nolint:gosec // n is non-negative
		return Stats{}, fmt.Errorf("write data: copied %d of %d bytes", n, cw.StoredSize())
	}

	stats := Stats{
		Entries:    len(entries),
		RawSize:    cw.RawSize(),
		StoredSize: cw.StoredSize(),
		IndexSize:  len(indexData),
	}
	for _, e := range entries {
		switch e.Type {
		case AssetTypeTexture:
			stats.Textures++
		case AssetTypeGroup:
			stats.Groups++
		}
	}
	b.log().Info("bundle created",
		"name", cfg.name,
		"entries", stats.Entries,
		"raw_size", stats.RawSize,
		"stored_size", stats.StoredSize)
	return stats, nil
}

// builder holds state for bundle creation.
type builder struct {
	cfg *createConfig
}

// log returns the logger, falling back to a discard logger if nil.
func (b *builder) log() *slog.Logger {
	if b.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.cfg.logger
}

// source is one file scheduled for packing.
type source struct {
	root   *os.Root
	fsPath string
	path   string
	typ    AssetType
}

// enumerate walks every input and returns the files sorted by asset path.
// The caller must call release once the files have been read.
func (b *builder) enumerate(ctx context.Context, inputs []Input) ([]source, func(), error) {
	maxFiles := b.cfg.maxFiles
	if maxFiles == 0 {
		maxFiles = DefaultMaxFiles
	}
	b.cfg.progress.Report(progress.Event{Stage: progress.StageEnumerating})

	roots := make([]*os.Root, 0, len(inputs))
	closeRoots := func() {
		for _, r := range roots {
			r.Close()
		}
	}
	fail := func(err error) ([]source, func(), error) {
		closeRoots()
		return nil, nil, err
	}

	var sources []source
	for _, in := range inputs {
		root, err := os.OpenRoot(in.Dir)
		if err != nil {
			return fail(fmt.Errorf("open input %s: %w", in.Dir, err))
		}
		roots = append(roots, root)

		prefix := strings.Trim(path.Clean("/"+filepath.ToSlash(in.Prefix)), "/")
		err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				if d.Type()&fs.ModeSymlink != 0 {
					b.log().Debug("skipped symlink", "dir", in.Dir, "path", p)
				}
				return nil
			}
			if in.Ext != "" && !strings.EqualFold(path.Ext(p), in.Ext) {
				return nil
			}
			if maxFiles > 0 && len(sources) >= maxFiles {
				return ErrTooManyFiles
			}
			name := p
			if prefix != "" {
				name = prefix + "/" + p
			}
			sources = append(sources, source{root: root, fsPath: filepath.FromSlash(p), path: name, typ: in.Type})
			return nil
		})
		if err != nil {
			return fail(err)
		}
	}

	slices.SortFunc(sources, func(a, b source) int { return cmp.Compare(a.path, b.path) })
	for i := 1; i < len(sources); i++ {
		if sources[i].path == sources[i-1].path {
			return fail(fmt.Errorf("%w: %s", ErrDuplicatePath, sources[i].path))
		}
	}
	return sources, closeRoots, nil
}

// writeData encodes every source into staged, in order, and returns the
// index entries, the closed codec writer and the hash of the raw stream.
func (b *builder) writeData(ctx context.Context, sources []source, staged io.Writer) ([]bundletype.Entry, *codec.Writer, []byte, error) {
	var wopts []codec.WriterOption
	if b.cfg.chunkSize > 0 {
		wopts = append(wopts, codec.WithChunkSize(b.cfg.chunkSize))
	}
	if b.cfg.zstdLevel != 0 {
		wopts = append(wopts, codec.WithZstdLevel(b.cfg.zstdLevel))
	}
	cw, err := codec.NewWriter(staged, b.cfg.compression, wopts...)
	if err != nil {
		return nil, nil, nil, err
	}

	dataHasher := sha256.New()
	raw := io.MultiWriter(cw, dataHasher)
	entries := make([]bundletype.Entry, 0, len(sources))
	buf := make([]byte, 32*1024)
	var offset uint64

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		size, hash, err := b.writeEntry(raw, buf, src)
		if err != nil {
			if errors.Is(err, platform.ErrSymlink) {
				b.log().Debug("skipped symlink", "path", src.path)
				continue
			}
			return nil, nil, nil, fmt.Errorf("write %s: %w", src.path, err)
		}
		if size > ^uint64(0)-offset {
			return nil, nil, nil, ErrSizeOverflow
		}
		entries = append(entries, bundletype.Entry{
			Path:       src.path,
			Type:       src.typ,
			DataOffset: offset,
			DataSize:   size,
			Hash:       hash,
		})
		offset += size
		b.cfg.progress.Report(progress.Event{
			Stage: progress.StagePacking,
			Path:  src.path,
			Done:  i + 1,
			Total: len(sources),
		})
	}

	if err := cw.Close(); err != nil {
		return nil, nil, nil, fmt.Errorf("finish data section: %w", err)
	}
	b.log().Debug("bundle data written", "entries", len(entries), "raw_size", cw.RawSize(), "stored_size", cw.StoredSize())
	return entries, cw, dataHasher.Sum(nil), nil
}

// writeEntry copies one file into data and returns its size and hash.
func (b *builder) writeEntry(data io.Writer, buf []byte, src source) (uint64, []byte, error) {
	f, err := platform.OpenInput(src.root, src.fsPath)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, nil, err
	}
	if !info.Mode().IsRegular() {
		return 0, nil, fmt.Errorf("not a regular file: %s", src.path)
	}

	hasher := sha256.New()
	n, err := io.CopyBuffer(io.MultiWriter(data, hasher), f, buf)
	if err != nil {
		return 0, nil, err
	}
	if n != info.Size() {
		return 0, nil, fmt.Errorf("file changed during packing: %s", src.path)
	}
	return uint64(n), hasher.Sum(nil), nil //nolint:gosec // n is non-negative
}
