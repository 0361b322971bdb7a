package supervisor

// State is the lifecycle state of the supervised server.
//
// State Machine:
// Ready -> Running -> Ended -> (reset) Ready
type State int32

const (
	StateReady State = iota
	StateRunning
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

