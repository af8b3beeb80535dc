package session

// State is the controller's lifecycle state.
type State int

// Controller states.
const (
	StateUninitialized State = iota
	StateIdle
	StateListening
	// StateStopping waits for the terminal event after a stop request.
	StateStopping
	StateDestroyed
)

var stateNames = [...]string{"uninitialized", "idle", "listening", "stopping", "destroyed"}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Snapshot is a point-in-time copy of the session fields.
type Snapshot struct {
	State       State
	Locale      string
	Available   bool
	UserAborted bool
	Text        string
	Generation  uint64
	HasHandle   bool
}
