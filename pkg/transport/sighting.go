package transport

import (
	"time"

	"github.com/google/uuid"
)

// MeshServiceUUID identifies peers that speak the mesh chat protocol.
// BLE peers advertise it as a service UUID; Wi-Fi Direct peers publish it
// in their DNS-SD service record.
var MeshServiceUUID = uuid.MustParse("12345678-1234-1234-1234-123456789abc")

// DefaultDeviceName is used when a radio reports no name for a peer.
const DefaultDeviceName = "Unknown Device"

// Sighting is one raw discovery result reported by a driver.
// Exactly one of BLE or WiFiDirect is set, matching Transport.
type Sighting struct {
	// Transport is the radio that produced the sighting.
	Transport Kind

	// ID is the transport-scoped identity (radio address).
	ID string

	// Timestamp is when the radio reported the sighting.
	Timestamp time.Time

	BLE        *BLEAdvertisement
	WiFiDirect *P2PPeer
}

// BLEAdvertisement is the BLE-specific part of a sighting.
type BLEAdvertisement struct {
	// LocalName is the advertised or cached device name (may be empty).
	LocalName string

	// RSSI is the received signal strength in dBm.
	RSSI int

	// ServiceUUIDs are the advertised service identifiers.
	ServiceUUIDs []uuid.UUID
}

// P2PStatus is the Wi-Fi Direct device status reported in a peer list.
type P2PStatus int

// Wi-Fi Direct device status values, numbered as the platform reports them.
const (
	P2PConnected   P2PStatus = 0
	P2PInvited     P2PStatus = 1
	P2PFailed      P2PStatus = 2
	P2PAvailable   P2PStatus = 3
	P2PUnavailable P2PStatus = 4
)

// String returns the status name.
func (s P2PStatus) String() string {
	switch s {
	case P2PConnected:
		return "CONNECTED"
	case P2PInvited:
		return "INVITED"
	case P2PFailed:
		return "FAILED"
	case P2PAvailable:
		return "AVAILABLE"
	case P2PUnavailable:
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// P2PPeer is the Wi-Fi Direct-specific part of a sighting.
type P2PPeer struct {
	// DeviceName is the peer's Wi-Fi Direct device name (may be empty).
	DeviceName string

	// Status is the platform device status.
	Status P2PStatus

	// PrimaryDeviceType is the WPS primary device type, if known.
	PrimaryDeviceType string

	// ServiceIDs are identifiers found through service discovery.
	ServiceIDs []uuid.UUID
}

// Name returns the reported device name, or "" if the radio did not report one.
func (s Sighting) Name() string {
	switch {
	case s.BLE != nil:
		return s.BLE.LocalName
	case s.WiFiDirect != nil:
		return s.WiFiDirect.DeviceName
	}
	return ""
}

// SignalStrength returns the RSSI when the transport reports one.
// Wi-Fi Direct peer lists carry no signal strength.
func (s Sighting) SignalStrength() (int, bool) {
	if s.BLE != nil {
		return s.BLE.RSSI, true
	}
	return 0, false
}

// ServiceIDs returns the advertised service identifiers.
func (s Sighting) ServiceIDs() []uuid.UUID {
	switch {
	case s.BLE != nil:
		return s.BLE.ServiceUUIDs
	case s.WiFiDirect != nil:
		return s.WiFiDirect.ServiceIDs
	}
	return nil
}

// HasMeshService reports whether the sighting advertises MeshServiceUUID.
func (s Sighting) HasMeshService() bool {
	for _, id := range s.ServiceIDs() {
		if id == MeshServiceUUID {
			return true
		}
	}
	return false
}

// Valid reports whether the sighting is well formed: a known transport, a
// non-empty id, and the variant matching the transport.
func (s Sighting) Valid() bool {
	if s.ID == "" {
		return false
	}
	switch s.Transport {
	case KindBLE:
		return s.BLE != nil && s.WiFiDirect == nil
	case KindWiFiDirect:
		return s.WiFiDirect != nil && s.BLE == nil
	}
	return false
}
