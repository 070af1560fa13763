package connection

import (
	"time"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// State represents a peer's connection state.
type State uint8

const (
	// StateDisconnected indicates no session.
	StateDisconnected State = iota

	// StateConnecting indicates a connect attempt is in progress.
	StateConnecting

	// StateConnected indicates an established link.
	StateConnected

	// StateDisconnecting indicates a disconnect is in progress.
	StateDisconnecting

	// StateFailed indicates connect attempts were exhausted.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnecting:
		return "DISCONNECTING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Session is a snapshot of a peer's connection session.
type Session struct {
	PeerID    string
	Transport transport.Kind
	State     State

	// Attempts is the number of driver connect calls made so far.
	Attempts int

	ConnectedAt time.Time
	LastError   error
}
