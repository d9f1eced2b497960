package engine

// State is the lifecycle position of a profiling session.
type State uint8

// Session states. Finalized and Errored are terminal until the next Start.
const (
	StateIdle State = iota
	StateInitialized
	StateAccumulating
	StateFinalized
	StateErrored
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateInitialized:  "initialized",
	StateAccumulating: "accumulating",
	StateFinalized:    "finalized",
	StateErrored:      "errored",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return "unknown"
}

// active reports whether the session accepts chunks and Finalize.
func (s State) active() bool {
	return s == StateInitialized || s == StateAccumulating
}
