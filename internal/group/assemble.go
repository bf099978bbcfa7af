package group

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/meigma/bundlebench/internal/progress"
)

// ErrSourceNotFound is returned when the texture directory does not exist.
var ErrSourceNotFound = errors.New("group: source directory not found")

// AssetExt is the file extension of serialized group assets.
const AssetExt = ".asset"

// progressEvery is how many groups are written between progress events.
const progressEvery = 5

// AssetName returns the file name of group i.
func AssetName(i int) string {
	return fmt.Sprintf("DummyTextureGroup_%03d%s", i, AssetExt)
}

// Partition splits n items into consecutive half-open ranges of at most k.
//
// It returns ceil(n/k) ranges; the last holds n mod k items when that is
// non-zero and k otherwise. k < 1 is treated as Capacity.
func Partition(n, k int) [][2]int {
	if k < 1 {
		k = Capacity
	}
	if n <= 0 {
		return nil
	}
	ranges := make([][2]int, 0, (n+k-1)/k)
	for start := 0; start < n; start += k {
		ranges = append(ranges, [2]int{start, min(start+k, n)})
	}
	return ranges
}

// AssembleOptions configures Assemble.
type AssembleOptions struct {
	// SourceDir holds the generated textures.
	SourceDir string

	// OutputDir receives the group assets. It is created if missing.
	OutputDir string

	// Progress receives an event every few groups and on completion.
	Progress progress.Func

	// Logger receives diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// AssembleStats summarizes an Assemble run.
type AssembleStats struct {
	// Textures is the number of textures found.
	Textures int

	// Groups is the number of group assets written.
	Groups int
}

// Assemble groups the textures in opts.SourceDir into assets of Capacity
// references each.
//
// Textures are taken in lexicographic file-name order so the grouping is
// stable across runs on the same input. A missing source directory returns
// ErrSourceNotFound.
func Assemble(ctx context.Context, opts AssembleOptions) (AssembleStats, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	names, err := ListTextures(opts.SourceDir)
	if err != nil {
		log.Error("cannot list textures", "dir", opts.SourceDir, "error", err)
		return AssembleStats{}, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0o750); err != nil {
		return AssembleStats{}, fmt.Errorf("group: create output directory: %w", err)
	}

	ranges := Partition(len(names), Capacity)
	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return AssembleStats{Textures: len(names), Groups: i}, err
		}
		name := strings.TrimSuffix(AssetName(i), AssetExt)
		rec, err := NewRecord(name, names[r[0]:r[1]]...)
		if err != nil {
			return AssembleStats{Textures: len(names), Groups: i}, err
		}
		data, err := rec.Encode()
		if err != nil {
			return AssembleStats{Textures: len(names), Groups: i}, fmt.Errorf("encode %s: %w", name, err)
		}
		path := filepath.Join(opts.OutputDir, AssetName(i))
		if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // assets are meant to be readable
			return AssembleStats{Textures: len(names), Groups: i}, fmt.Errorf("write %s: %w", path, err)
		}
		if i%progressEvery == 0 || i == len(ranges)-1 {
			opts.Progress.Report(progress.Event{
				Stage: progress.StageAssembling,
				Path:  path,
				Done:  i + 1,
				Total: len(ranges),
			})
		}
	}

	stats := AssembleStats{Textures: len(names), Groups: len(ranges)}
	log.Info("generated texture groups", "dir", opts.OutputDir, "groups", stats.Groups, "textures", stats.Textures)
	return stats, nil
}

// ListTextures returns the PNG file names in dir, sorted lexicographically.
func ListTextures(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, dir)
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
