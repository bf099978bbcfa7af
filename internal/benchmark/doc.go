// Package benchmark measures how long a bundle takes to open and to
// materialize every group it contains.
//
// A Benchmark is a small state machine stepped once per frame by Tick:
//
//	Idle -> Opening -> Materializing -> Reporting -> Idle
//
// Completion of the asynchronous open and loads is observed by polling once
// per frame, never by blocking, so the awake counter can be sampled on every
// frame a load is still pending. Scheduler supplies the frame loop.
package benchmark
