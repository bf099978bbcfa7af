package benchmark

import (
	"fmt"
	"time"

	"github.com/meigma/bundlebench/bundle"
)

// Selection is what a run loads: a bundle compression mode and the
// background priority its groups are materialized at.
type Selection struct {
	Mode     bundle.Compression
	Priority bundle.Priority
}

// String returns "mode/priority".
func (s Selection) String() string {
	return s.Mode.String() + "/" + s.Priority.String()
}

// Result is the outcome of one completed run.
type Result struct {
	Mode     string `json:"mode"`
	Priority string `json:"priority"`

	// OpenLatency is the time from Start until the bundle was open.
	OpenLatency time.Duration `json:"open_latency_ns"`

	// TotalLatency is the time from Start until every load finished.
	TotalLatency time.Duration `json:"total_latency_ns"`

	// Groups is the number of group assets found in the bundle.
	Groups int `json:"groups"`

	// Awake is the counter value at completion.
	Awake int64 `json:"awake"`

	// FailedLoads is the number of group loads that returned an error.
	FailedLoads int `json:"failed_loads"`

	// Frames is the number of frames spent materializing.
	Frames int `json:"frames"`

	// Samples holds the counter value per frame, up to the sampler capacity.
	Samples []int64 `json:"samples"`

	// Deltas holds the counter increase per sampled frame.
	Deltas []int64 `json:"deltas"`

	// MaxDelta is the largest per-frame increase.
	MaxDelta int64 `json:"max_delta"`

	// DroppedSamples is the number of frames beyond the sampler capacity.
	DroppedSamples int `json:"dropped_samples"`

	// FileSize is the size of the selected bundle file.
	FileSize int64 `json:"file_size"`

	// StoreSize is the size of the store-mode bundle file.
	StoreSize int64 `json:"store_size"`

	// Ratio is FileSize / StoreSize.
	Ratio float64 `json:"ratio"`
}

// Label returns the status line shown when a run completes.
func (r Result) Label() string {
	return fmt.Sprintf("Loaded %d groups in %dms", r.Groups, r.TotalLatency.Milliseconds())
}

// Ratio returns size / storeSize, or 1.0 when storeSize is 0.
func Ratio(size, storeSize int64) float64 {
	if storeSize == 0 {
		return 1.0
	}
	return float64(size) / float64(storeSize)
}
