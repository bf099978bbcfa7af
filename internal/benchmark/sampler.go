package benchmark

// DefaultSampleCapacity is the number of frames sampled per run when no
// capacity is configured.
const DefaultSampleCapacity = 1024

// Sampler records one counter value per frame into a fixed-capacity buffer.
// Frames at or beyond the capacity are counted as dropped, not stored.
type Sampler struct {
	buf     []int64
	n       int
	dropped int
}

// NewSampler returns a sampler holding up to capacity frames. Values <= 0
// use DefaultSampleCapacity.
func NewSampler(capacity int) *Sampler {
	if capacity <= 0 {
		capacity = DefaultSampleCapacity
	}
	return &Sampler{buf: make([]int64, capacity)}
}

// Record stores v as the sample for frame. It reports false when the frame
// is outside the buffer.
func (s *Sampler) Record(frame int, v int64) bool {
	if frame < 0 || frame >= len(s.buf) {
		s.dropped++
		return false
	}
	s.buf[frame] = v
	s.n = max(s.n, frame+1)
	return true
}

// Len returns the number of frames stored.
func (s *Sampler) Len() int {
	return s.n
}

// Cap returns the buffer capacity.
func (s *Sampler) Cap() int {
	return len(s.buf)
}

// Dropped returns the number of frames that did not fit.
func (s *Sampler) Dropped() int {
	return s.dropped
}

// Values returns a copy of the stored samples in frame order.
func (s *Sampler) Values() []int64 {
	return append([]int64(nil), s.buf[:s.n]...)
}

// Reset clears the buffer for a new run.
func (s *Sampler) Reset() {
	clear(s.buf[:s.n])
	s.n = 0
	s.dropped = 0
}

// Deltas returns the per-frame increase of samples: each sample minus the
// previous one, with the first delta equal to the first sample.
func Deltas(samples []int64) []int64 {
	deltas := make([]int64, len(samples))
	var prev int64
	for i, v := range samples {
		deltas[i] = v - prev
		prev = v
	}
	return deltas
}

// MaxDelta returns the largest delta, or 0 for none.
func MaxDelta(deltas []int64) int64 {
	var m int64
	for i, d := range deltas {
		if i == 0 || d > m {
			m = d
		}
	}
	return m
}
