// Package progress defines the progress events reported by the long-running
// stages (generation, assembly, packing).
package progress

// Event represents a progress update during a pipeline stage.
type Event struct {
	// Stage identifies the current phase of the operation.
	Stage Stage

	// Path is the file currently being processed, if applicable.
	Path string

	// Done is the number of items completed.
	Done int

	// Total is the total number of items.
	// Zero indicates the total is unknown (e.g., during enumeration).
	Total int
}

// Fraction returns Done/Total, or 0 when the total is unknown.
func (e Event) Fraction() float64 {
	if e.Total <= 0 {
		return 0
	}
	return float64(e.Done) / float64(e.Total)
}

// Stage identifies the current phase of an operation.
type Stage uint8

// Pipeline stages.
const (
	// StageGenerating indicates synthetic images are being written.
	StageGenerating Stage = iota

	// StageAssembling indicates container assets are being written.
	StageAssembling

	// StageEnumerating indicates bundle inputs are being walked.
	StageEnumerating

	// StagePacking indicates files are being written into a bundle.
	StagePacking

	// StageCopying indicates built bundles are being copied to the runtime directory.
	StageCopying
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageGenerating:
		return "generating"
	case StageAssembling:
		return "assembling"
	case StageEnumerating:
		return "enumerating"
	case StagePacking:
		return "packing"
	case StageCopying:
		return "copying"
	default:
		return "unknown"
	}
}

// Func receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type Func func(Event)

// Report calls fn with ev when fn is non-nil.
func (fn Func) Report(ev Event) {
	if fn != nil {
		fn(ev)
	}
}
