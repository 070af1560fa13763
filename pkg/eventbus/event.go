package eventbus

import (
	"time"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// Family groups events by purpose.
type Family uint8

const (
	// FamilyDiscovery carries peer upserts and offline transitions.
	FamilyDiscovery Family = iota + 1

	// FamilyLifecycle carries scan and connection state transitions.
	FamilyLifecycle

	// FamilyError carries driver and radio failures.
	FamilyError

	// FamilyData carries payloads received from connected peers.
	FamilyData
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilyDiscovery:
		return "DISCOVERY"
	case FamilyLifecycle:
		return "LIFECYCLE"
	case FamilyError:
		return "ERROR"
	case FamilyData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// Event is an immutable record flowing through the bus. Exactly one payload
// pointer is set, matching Family.
type Event struct {
	Family    Family
	Transport transport.Kind
	Timestamp time.Time

	// Seq is assigned by the bus on publish and increases by one per event.
	Seq uint64

	Discovery *DiscoveryEvent
	Lifecycle *LifecycleEvent
	Error     *ErrorEvent
	Data      *DataEvent
}

// DiscoveryEvent describes the current view of a peer after an upsert.
type DiscoveryEvent struct {
	ID             string
	Name           string
	Address        string
	SignalStrength *int
	IsOnline       bool
	LastSeen       time.Time
	HasMeshService bool
}

// Entity is the kind of state machine a lifecycle event refers to.
type Entity uint8

const (
	// EntityScan is a per-transport scan session.
	EntityScan Entity = iota + 1

	// EntityConnection is a per-peer connection session.
	EntityConnection
)

// String returns the entity name.
func (e Entity) String() string {
	switch e {
	case EntityScan:
		return "SCAN"
	case EntityConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// LifecycleEvent is a state transition. PeerID is empty for scan sessions.
type LifecycleEvent struct {
	Entity    Entity
	PeerID    string
	FromState string
	ToState   string
	Reason    string
}

// ErrorEvent reports a failure. PeerID is set when the failure concerns a
// single peer.
type ErrorEvent struct {
	Code    transport.Code
	Message string
	PeerID  string
}

// DataEvent is a payload received from a peer.
type DataEvent struct {
	PeerID  string
	Payload []byte
}

// NewDiscovery builds a discovery event.
func NewDiscovery(k transport.Kind, d DiscoveryEvent) Event {
	return Event{Family: FamilyDiscovery, Transport: k, Timestamp: time.Now(), Discovery: &d}
}

// NewLifecycle builds a lifecycle event.
func NewLifecycle(k transport.Kind, l LifecycleEvent) Event {
	return Event{Family: FamilyLifecycle, Transport: k, Timestamp: time.Now(), Lifecycle: &l}
}

// NewError builds an error event from err. Structured transport errors keep
// their code; anything else is reported as INTERNAL.
func NewError(k transport.Kind, peerID string, err error) Event {
	return Event{
		Family:    FamilyError,
		Transport: k,
		Timestamp: time.Now(),
		Error: &ErrorEvent{
			Code:    transport.CodeOf(err),
			Message: err.Error(),
			PeerID:  peerID,
		},
	}
}

// NewData builds a data event.
func NewData(k transport.Kind, peerID string, payload []byte) Event {
	return Event{Family: FamilyData, Transport: k, Timestamp: time.Now(), Data: &DataEvent{PeerID: peerID, Payload: payload}}
}
