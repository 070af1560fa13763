package scan

// State is the scan session state.
type State uint8

const (
	StateIdle State = iota
	StateStarting
	StateScanning
	StateStopping
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateScanning:
		return "SCANNING"
	case StateStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}
