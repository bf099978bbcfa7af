package group

import "sync/atomic"

// AwakeCounter counts texture group initializations.
//
// Materialization callbacks run on loader worker goroutines while the frame
// loop reads the value, so all access goes through atomics. The zero value is
// ready to use.
type AwakeCounter struct {
	n atomic.Int64
}

// Inc records one initialization and returns the new count.
func (c *AwakeCounter) Inc() int64 {
	return c.n.Add(1)
}

// Load returns the current count.
func (c *AwakeCounter) Load() int64 {
	return c.n.Load()
}

// Reset sets the count to zero.
func (c *AwakeCounter) Reset() {
	c.n.Store(0)
}
