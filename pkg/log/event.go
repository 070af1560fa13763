package log

import (
	"time"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// Event is one journal record. Exactly one payload pointer is set. The
// integer CBOR keys are part of the journal format and must not change.
type Event struct {
	Timestamp  time.Time      `cbor:"1,keyasint"`
	LinkID     string         `cbor:"2,keyasint,omitempty"` // link UUID for frame and link state events
	Direction  Direction      `cbor:"3,keyasint"`
	Layer      Layer          `cbor:"4,keyasint"`
	Category   Category       `cbor:"5,keyasint"`
	Transport  transport.Kind `cbor:"6,keyasint,omitempty"`
	PeerID     string         `cbor:"7,keyasint,omitempty"` // transport-scoped
	RemoteAddr string         `cbor:"8,keyasint,omitempty"` // IP:port of a link peer
	Seq        uint64         `cbor:"9,keyasint,omitempty"` // event bus sequence

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Discovery   *DiscoveryData    `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
	Data        *DataEventData    `cbor:"14,keyasint,omitempty"`
}

func enumName(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return "UNKNOWN"
}

// Direction is the flow of a frame or payload relative to this node.
type Direction uint8

const (
	DirectionIn Direction = iota
	DirectionOut
)

var directionNames = []string{"IN", "OUT"}

func (d Direction) String() string { return enumName(directionNames, int(d)) }

// Layer is where an event was captured.
type Layer uint8

const (
	LayerLink    Layer = iota // framed bytes on a link
	LayerDriver               // radio driver
	LayerService              // mesh service and event bus
)

var layerNames = []string{"LINK", "DRIVER", "SERVICE"}

func (l Layer) String() string { return enumName(layerNames, int(l)) }

// Category classifies an event independent of its layer.
type Category uint8

const (
	CategoryMessage Category = iota
	CategoryDiscovery
	CategoryState
	CategoryError
)

var categoryNames = []string{"MESSAGE", "DISCOVERY", "STATE", "ERROR"}

func (c Category) String() string { return enumName(categoryNames, int(c)) }

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, bool) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), true
		}
	}
	return 0, false
}

// FrameEvent is a frame seen on a link. Size counts the length prefix;
// Data holds at most the first few KiB of the payload.
type FrameEvent struct {
	Size      int    `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`
}

// DiscoveryData captures a peer view after a sighting or a sweep.
type DiscoveryData struct {
	Name           string    `cbor:"1,keyasint,omitempty"`
	SignalStrength *int      `cbor:"2,keyasint,omitempty"`
	Online         bool      `cbor:"3,keyasint"`
	HasMeshService bool      `cbor:"4,keyasint,omitempty"`
	LastSeen       time.Time `cbor:"5,keyasint"`
}

// StateChangeEvent records a scan, connection or link transition. OldState
// is empty for the first transition of an entity.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity is what a StateChangeEvent is about.
type StateEntity uint8

const (
	StateEntityScan StateEntity = iota
	StateEntityConnection
	StateEntityLink
)

var stateEntityNames = []string{"SCAN", "CONNECTION", "LINK"}

func (s StateEntity) String() string { return enumName(stateEntityNames, int(s)) }

// ErrorEventData is a failure at any layer. Code carries the transport
// error code when there is one; Context names the operation.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
	Code    string `cbor:"3,keyasint,omitempty"`
	Context string `cbor:"4,keyasint,omitempty"`
}

// DataEventData is a payload delivered to the application.
type DataEventData struct {
	Size      int    `cbor:"1,keyasint"`
	Payload   []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`
}
