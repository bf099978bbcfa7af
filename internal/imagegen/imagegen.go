package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math/rand" //nolint:gosec // seeded source is required for reproducible pixels
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/bundlebench/internal/progress"
)

// Default texture set dimensions.
const (
	DefaultCount  = 1000
	DefaultWidth  = 256
	DefaultHeight = 256

	// progressEvery is how many images are written between progress events.
	progressEvery = 10
)

// ErrOutputDir is returned when the output directory cannot be created.
var ErrOutputDir = errors.New("imagegen: cannot create output directory")

// FileName returns the file name for image i.
func FileName(i int) string {
	return fmt.Sprintf("DummyTexture_%04d.png", i)
}

// Image returns the width×height image for seed.
//
// Pixels are filled in row-major order with R, G, B drawn from a source
// seeded with seed alone; alpha is always opaque.
func Image(seed int64, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducibility over unpredictability
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = byte(rng.Intn(256))
		pix[i+1] = byte(rng.Intn(256))
		pix[i+2] = byte(rng.Intn(256))
		pix[i+3] = 0xff
	}
	return img
}

// Encode returns the PNG encoding of the image for seed.
func Encode(seed int64, width, height int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Image(seed, width, height)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Options configures Generate.
type Options struct {
	// Dir is the output directory. It is created if missing.
	Dir string

	// Count is the number of images. Zero uses DefaultCount.
	Count int

	// Width and Height are the image dimensions. Zero uses the defaults.
	Width  int
	Height int

	// Workers bounds concurrent encoders. Zero uses GOMAXPROCS.
	Workers int

	// Progress receives an event every few images and on completion.
	Progress progress.Func

	// Logger receives diagnostics. Nil disables logging.
	Logger *slog.Logger
}

func (o *Options) setDefaults() {
	if o.Count == 0 {
		o.Count = DefaultCount
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Stats summarizes a Generate run.
type Stats struct {
	// Files is the number of images written.
	Files int

	// Bytes is the total size of the encoded images.
	Bytes int64
}

// Generate writes opts.Count images named by FileName into opts.Dir.
//
// A failure to create the directory returns ErrOutputDir. Any encode or
// write failure aborts the run and is returned; there are no retries.
func Generate(ctx context.Context, opts Options) (Stats, error) {
	opts.setDefaults()
	if opts.Count < 0 {
		return Stats{}, fmt.Errorf("imagegen: negative count %d", opts.Count)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return Stats{}, fmt.Errorf("imagegen: invalid size %dx%d", opts.Width, opts.Height)
	}

	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return Stats{}, fmt.Errorf("%w %s: %w", ErrOutputDir, opts.Dir, err)
	}

	log := opts.Logger
	log.Info("generating textures", "dir", opts.Dir, "count", opts.Count, "width", opts.Width, "height", opts.Height)

	var (
		written atomic.Int64
		total   atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range opts.Count {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := Encode(int64(i), opts.Width, opts.Height)
			if err != nil {
				return fmt.Errorf("encode %s: %w", FileName(i), err)
			}
			path := filepath.Join(opts.Dir, FileName(i))
			if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // assets are meant to be readable
				return fmt.Errorf("write %s: %w", path, err)
			}
			total.Add(int64(len(data)))
			done := int(written.Add(1))
			if done%progressEvery == 0 || done == opts.Count {
				opts.Progress.Report(progress.Event{
					Stage: progress.StageGenerating,
					Path:  path,
					Done:  done,
					Total: opts.Count,
				})
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Error("texture generation failed", "error", err)
		return Stats{Files: int(written.Load()), Bytes: total.Load()}, err
	}

	stats := Stats{Files: int(written.Load()), Bytes: total.Load()}
	log.Info("generated textures", "dir", opts.Dir, "files", stats.Files, "bytes", stats.Bytes)
	return stats, nil
}
