package ble

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MeshDataCharacteristicUUID is the GATT characteristic carrying mesh
// payloads inside the mesh service.
var MeshDataCharacteristicUUID = uuid.MustParse("12345678-1234-1234-1234-123456789abd")

// ScanResult is one advertisement report from the radio.
type ScanResult struct {
	Address      string
	Name         string
	RSSI         int
	ServiceUUIDs []uuid.UUID

	// Timestamp is when the radio received the report. Zero means now.
	Timestamp time.Time
}

// ScanHandler receives scan callbacks. Both functions may be called from
// any goroutine.
type ScanHandler struct {
	OnResult func(ScanResult)
	OnFailed func(FailureCode)
}

// LinkHandler receives callbacks for one GATT link.
type LinkHandler struct {
	// OnData is called for each notification on the data characteristic.
	OnData func(payload []byte)

	// OnLost is called once when the link drops without Close.
	OnLost func(err error)
}

// BondedDevice is a device the adapter is paired with.
type BondedDevice struct {
	Address string
	Name    string
}

// GATTLink is an open connection to a peer's mesh data characteristic.
type GATTLink interface {
	Write(payload []byte) error
	Close() error
}

// Radio is the platform BLE stack.
type Radio interface {
	// Enabled reports whether the adapter is present and switched on.
	Enabled() bool

	// StartScan begins scanning and reports through h until StopScan.
	StartScan(h ScanHandler) error

	// StopScan stops a running scan.
	StopScan() error

	// BondedDevices lists paired devices.
	BondedDevices() ([]BondedDevice, error)

	// Connect opens a GATT link to address.
	Connect(ctx context.Context, address string, h LinkHandler) (GATTLink, error)
}
