package registry

import (
	"time"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// ConnectionStatus is the registry's view of a peer's connection.
type ConnectionStatus uint8

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
)

// String returns the status name.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "DISCONNECTED"
	case StatusConnecting:
		return "CONNECTING"
	case StatusConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// PeerDevice is a snapshot of one registry entry.
type PeerDevice struct {
	Transport transport.Kind
	ID        string

	// Name is DefaultDeviceName until a sighting reports a name.
	Name string

	// Address is the radio address used to reach the peer.
	Address string

	// SignalStrength is nil for transports that report none.
	SignalStrength *int

	HasMeshService bool
	Status         ConnectionStatus

	// Online is true when the entry was within the staleness window, or
	// connected, at the time the snapshot was taken.
	Online bool

	// P2PStatus is the last Wi-Fi Direct device status; zero value for BLE.
	P2PStatus transport.P2PStatus

	FirstSeen time.Time
	LastSeen  time.Time
}

// Key identifies a registry entry.
type Key struct {
	Transport transport.Kind
	ID        string
}

// Key returns the entry key.
func (p PeerDevice) Key() Key {
	return Key{Transport: p.Transport, ID: p.ID}
}

// Stale reports whether the peer went unseen for longer than ttl at now.
// Connected or connecting peers are never stale. A ttl <= 0 disables staleness.
func (p PeerDevice) Stale(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || p.Status != StatusDisconnected {
		return false
	}
	return now.Sub(p.LastSeen) > ttl
}

// clone returns a copy that shares no memory with the entry.
func (p *PeerDevice) clone() PeerDevice {
	c := *p
	if p.SignalStrength != nil {
		v := *p.SignalStrength
		c.SignalStrength = &v
	}
	return c
}
