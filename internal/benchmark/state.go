package benchmark

// State is the benchmark's position in a run.
type State uint8

const (
	// StateIdle accepts Start.
	StateIdle State = iota

	// StateOpening waits for the bundle open to finish.
	StateOpening

	// StateMaterializing waits for every group load to finish, sampling the
	// awake counter each frame.
	StateMaterializing

	// StateReporting derives the result. It is left within the same tick.
	StateReporting
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateMaterializing:
		return "materializing"
	case StateReporting:
		return "reporting"
	default:
		return "unknown"
	}
}

// Running reports whether a run is in progress.
func (s State) Running() bool {
	return s != StateIdle
}
