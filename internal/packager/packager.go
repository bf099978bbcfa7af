package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/bundlebench/bundle"
	"github.com/meigma/bundlebench/internal/group"
	"github.com/meigma/bundlebench/internal/progress"
)

// DefaultName is the bundle name used when Options.Name is empty.
const DefaultName = "textures"

var (
	// ErrSourceNotFound is returned when the textures directory is missing.
	ErrSourceNotFound = errors.New("packager: textures directory not found")

	// ErrMissingArtifact is returned for a mode whose build produced no file.
	ErrMissingArtifact = errors.New("packager: build produced no artifact")
)

// Options configures Build.
type Options struct {
	// TexturesDir holds the PNG textures. It must exist.
	TexturesDir string

	// GroupsDir holds the group assets. A missing directory yields a bundle
	// of textures only.
	GroupsDir string

	// BuildDir is cleared and receives one subdirectory per mode.
	BuildDir string

	// RuntimeDir receives the bundles the benchmark opens, named
	// bundle.FileName(Name, mode).
	RuntimeDir string

	// Name is the bundle name. Empty uses DefaultName.
	Name string

	// Modes selects the modes to build, in bundle.Compressions order.
	// Empty builds every mode.
	Modes []bundle.Compression

	// ChunkSize is the raw block size for chunked bundles. Zero uses the
	// codec default.
	ChunkSize int

	// Progress receives packing and copying events.
	Progress progress.Func

	// Logger receives diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// Artifact is the outcome of building one mode.
type Artifact struct {
	Mode bundle.Compression

	// BuildPath is where the bundle was built.
	BuildPath string

	// Path is the staged runtime copy.
	Path string

	// Size is the size of the bundle file in bytes.
	Size int64

	// Digest is the SHA-256 digest of the bundle file.
	Digest digest.Digest

	// Stats summarizes the bundle contents.
	Stats bundle.Stats

	// Duration is the time spent building and staging.
	Duration time.Duration

	// Err is set when the mode failed; the other fields may be partial.
	Err error
}

// OK reports whether the artifact was built and staged.
func (a Artifact) OK() bool {
	return a.Err == nil
}

// Report summarizes a Build.
type Report struct {
	// Textures and Groups are the asset counts assigned to the bundle.
	Textures int
	Groups   int

	// Artifacts holds one entry per requested mode, in build order.
	Artifacts []Artifact
}

// Artifact returns the artifact for mode.
func (r *Report) Artifact(mode bundle.Compression) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Mode == mode {
			return a, true
		}
	}
	return Artifact{}, false
}

// Succeeded returns the artifacts that were built and staged.
func (r *Report) Succeeded() []Artifact {
	var out []Artifact
	for _, a := range r.Artifacts {
		if a.OK() {
			out = append(out, a)
		}
	}
	return out
}

// Build packs the textures and groups into one bundle per mode.
//
// A missing textures directory is fatal and returns ErrSourceNotFound before
// anything is touched. Otherwise the build directory is cleared, and each
// mode is built and copied to the runtime directory independently: a failed
// mode is logged and recorded in its Artifact while the others proceed, and
// any runtime copy left from an earlier build of that mode is removed. The
// returned error joins every per-mode failure, so a nil error means every
// requested mode succeeded.
func Build(ctx context.Context, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	name := opts.Name
	if name == "" {
		name = DefaultName
	}
	modes := opts.Modes
	if len(modes) == 0 {
		modes = bundle.Compressions
	}

	if info, err := os.Stat(opts.TexturesDir); err != nil || !info.IsDir() {
		log.Error("textures directory not found", "dir", opts.TexturesDir)
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, opts.TexturesDir)
	}

	textures, err := group.ListTextures(opts.TexturesDir)
	if err != nil {
		return nil, err
	}
	inputs := []bundle.Input{
		{Dir: opts.TexturesDir, Prefix: strings.TrimSuffix(bundle.TexturePrefix, "/"), Type: bundle.AssetTypeTexture, Ext: ".png"},
	}
	groups, err := countFiles(opts.GroupsDir, group.AssetExt)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn("groups directory not found; building textures only", "dir", opts.GroupsDir)
	case err != nil:
		return nil, err
	default:
		inputs = append(inputs, bundle.Input{
			Dir: opts.GroupsDir, Prefix: strings.TrimSuffix(bundle.GroupPrefix, "/"), Type: bundle.AssetTypeGroup, Ext: group.AssetExt,
		})
	}

	report := &Report{Textures: len(textures), Groups: groups}
	log.Info(fmt.Sprintf("Assigned %d textures and %d groups to bundle", report.Textures, report.Groups),
		"bundle", name, "textures", report.Textures, "groups", report.Groups)

	if err := os.RemoveAll(opts.BuildDir); err != nil {
		return nil, fmt.Errorf("clear build directory: %w", err)
	}
	if err := os.MkdirAll(opts.BuildDir, 0o750); err != nil {
		return nil, fmt.Errorf("create build directory: %w", err)
	}
	if err := os.MkdirAll(opts.RuntimeDir, 0o750); err != nil {
		return nil, fmt.Errorf("create runtime directory: %w", err)
	}

	var errs []error
	for _, mode := range modes {
		if err := ctx.Err(); err != nil {
			return report, errors.Join(append(errs, err)...)
		}
		a := buildMode(ctx, inputs, name, mode, &opts, log)
		report.Artifacts = append(report.Artifacts, a)
		if a.Err != nil {
			log.Error("bundle build failed", "mode", mode.String(), "error", a.Err)
			errs = append(errs, fmt.Errorf("%s: %w", mode, a.Err))
			continue
		}
		log.Info("bundle built",
			"mode", mode.String(),
			"path", a.Path,
			"size", a.Size,
			"digest", a.Digest.String(),
			"duration", a.Duration)
	}
	return report, errors.Join(errs...)
}

func buildMode(ctx context.Context, inputs []bundle.Input, name string, mode bundle.Compression, opts *Options, log *slog.Logger) Artifact {
	start := time.Now()
	a := Artifact{
		Mode:      mode,
		BuildPath: filepath.Join(opts.BuildDir, mode.String(), name),
		Path:      filepath.Join(opts.RuntimeDir, bundle.FileName(name, mode)),
	}

	fail := func(err error) Artifact {
		a.Err = err
		removeStale(a.Path, log)
		return a
	}

	stats, err := bundle.CreateFile(ctx, inputs, a.BuildPath,
		bundle.CreateWithCompression(mode),
		bundle.CreateWithName(name),
		bundle.CreateWithChunkSize(opts.ChunkSize),
		bundle.CreateWithProgress(opts.Progress),
		bundle.CreateWithLogger(log.With("mode", mode.String())))
	if err != nil {
		return fail(err)
	}
	a.Stats = stats

	if _, err := os.Stat(a.BuildPath); err != nil {
		return fail(fmt.Errorf("%w: %s", ErrMissingArtifact, a.BuildPath))
	}

	opts.Progress.Report(progress.Event{Stage: progress.StageCopying, Path: a.Path})
	size, dgst, err := copyFileAtomic(a.BuildPath, a.Path)
	if err != nil {
		return fail(fmt.Errorf("copy to runtime directory: %w", err))
	}
	a.Size = size
	a.Digest = dgst
	a.Duration = time.Since(start)
	return a
}

// removeStale deletes a runtime bundle left by an earlier build so a failed
// mode cannot be benchmarked against old contents. Anything other than a
// regular file is left alone.
func removeStale(path string, log *slog.Logger) {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if err := os.Remove(path); err != nil {
		log.Warn("failed to remove stale runtime bundle", "path", path, "error", err)
		return
	}
	log.Warn("removed stale runtime bundle", "path", path)
}

// copyFileAtomic copies src over dst via a temp file in dst's directory and
// returns the size and digest of the copied bytes.
func copyFileAtomic(src, dst string) (int64, digest.Digest, error) {
	in, err := os.Open(src) //nolint:gosec // build output path
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".bundle-copy-*")
	if err != nil {
		return 0, "", err
	}
	tmpPath := tmp.Name()

	digester := digest.SHA256.Digester()
	n, err := io.Copy(io.MultiWriter(tmp, digester.Hash()), in)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, "", err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return 0, "", err
	}
	return n, digester.Digest(), nil
}

// countFiles returns the number of regular files in dir with extension ext.
func countFiles(dir, ext string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			n++
		}
	}
	return n, nil
}
