package bundlebench

import (
	"log/slog"

	"github.com/meigma/bundlebench/internal/benchmark"
	"github.com/meigma/bundlebench/internal/progress"
)

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// PipelineWithLogger sets the logger for every stage.
func PipelineWithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// PipelineWithProgress sets a callback for generation, assembly and
// packing progress.
func PipelineWithProgress(fn progress.Func) PipelineOption {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// PipelineWithObserver adds a benchmark run observer. It may be given more
// than once.
func PipelineWithObserver(o benchmark.Observer) PipelineOption {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// PipelineWithFrameFunc sets a callback invoked after every benchmark frame.
func PipelineWithFrameFunc(fn benchmark.FrameFunc) PipelineOption {
	return func(p *Pipeline) {
		p.onFrame = fn
	}
}
