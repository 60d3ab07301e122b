package server

// Phase is the Listener's lifecycle position:
// Stopped -> Starting -> Running -> Stopping -> Stopped.
type Phase int

const (
	PhaseStopped Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseStopping
)

func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// State is a read-only snapshot of the Listener. Running is true exactly
// while the listening socket is open.
type State struct {
	Addr    string
	Port    int
	Running bool
	Phase   Phase
}
