package encoder

// State is the lifecycle state of an Encoder.
//
//	StateUninit -> StateReady -> StateRunning <-> StateRunning -> StateFinishing -> StateEnded
//
// StateEnded is terminal.
type State uint8

const (
	StateUninit State = iota
	StateReady
	StateRunning
	StateFinishing
	StateEnded
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateFinishing:
		return "finishing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
