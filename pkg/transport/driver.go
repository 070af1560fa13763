package transport

import (
	"context"
	"fmt"
	"time"
)

// Driver wraps one radio technology.
//
// Start/Stop are idempotent. Sightings, Failures and ConnectionEvents are
// lazy infinite streams that are never restarted: they stay open for the
// lifetime of the driver and are closed by Close.
type Driver interface {
	// Kind returns the radio technology.
	Kind() Kind

	// IsRadioEnabled reports whether the radio is present and switched on.
	IsRadioEnabled() bool

	// StartDiscovery begins scanning. Returns nil once the radio confirmed
	// the start; nil also when already scanning. Fails with
	// ErrRadioUnavailable when the radio is off or absent.
	StartDiscovery(ctx context.Context) error

	// StopDiscovery stops scanning. Returns nil when already stopped.
	StopDiscovery(ctx context.Context) error

	// Sightings delivers raw discovery results while scanning.
	Sightings() <-chan Sighting

	// Failures delivers asynchronous scan failures that happen after a
	// successful start. Each failure ends the current scan.
	Failures() <-chan error

	// Connect establishes a link to the peer.
	Connect(ctx context.Context, peerID string) error

	// Disconnect tears down the link to the peer. Returns nil when no link exists.
	Disconnect(ctx context.Context, peerID string) error

	// Send submits payload to a connected peer. Success means the radio
	// accepted the payload, not that the peer received it.
	Send(ctx context.Context, peerID string, payload []byte) error

	// ConnectionEvents delivers link-level changes.
	ConnectionEvents() <-chan ConnEvent

	// Close releases the radio and closes all streams.
	Close() error
}

// ConnEventType classifies a connection event.
type ConnEventType uint8

const (
	// ConnLinkLost means an established link dropped without a request.
	ConnLinkLost ConnEventType = iota + 1

	// ConnDataReceived means the peer sent a payload.
	ConnDataReceived
)

// String returns the event type name.
func (t ConnEventType) String() string {
	switch t {
	case ConnLinkLost:
		return "LINK_LOST"
	case ConnDataReceived:
		return "DATA_RECEIVED"
	default:
		return "UNKNOWN"
	}
}

// ConnEvent is a connection-oriented event reported by a driver.
type ConnEvent struct {
	Transport Kind
	Type      ConnEventType
	PeerID    string
	Payload   []byte
	Err       error
	Timestamp time.Time
}

// Guard runs a radio call and converts a panic into an ErrInternal error so
// that no platform fault crosses the driver boundary.
func Guard(k Kind, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(k, ErrInternal, fmt.Sprintf("%s: radio panic: %v", op, r))
		}
	}()
	return fn()
}
