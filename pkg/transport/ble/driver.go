package ble

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

const kind = transport.KindBLE

// gattEntry tracks one link. The handler closures hold the entry so a loss
// reported for an old link cannot remove a newer one.
type gattEntry struct {
	link GATTLink
}

// Driver is the BLE transport.Driver.
type Driver struct {
	*transport.Streams

	radio Radio

	// ops serializes scan start and stop against the radio.
	ops      sync.Mutex
	scanning atomic.Bool

	mu     sync.Mutex
	links  map[string]*gattEntry
	logger *slog.Logger
}

var _ transport.Driver = (*Driver)(nil)

// New creates a driver over radio.
func New(radio Radio) *Driver {
	return &Driver{
		Streams: transport.NewStreams(0),
		radio:   radio,
		links:   make(map[string]*gattEntry),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the operational logger.
func (d *Driver) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	d.mu.Lock()
	d.logger = logger.With("transport", kind.String())
	d.mu.Unlock()
}

func (d *Driver) log() *slog.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logger
}

// Kind returns transport.KindBLE.
func (d *Driver) Kind() transport.Kind { return kind }

// IsRadioEnabled reports whether the adapter is present and on.
func (d *Driver) IsRadioEnabled() bool {
	if d.radio == nil {
		return false
	}
	var enabled bool
	_ = transport.Guard(kind, "enabled", func() error {
		enabled = d.radio.Enabled()
		return nil
	})
	return enabled
}

// StartDiscovery starts a BLE scan.
func (d *Driver) StartDiscovery(ctx context.Context) error {
	d.ops.Lock()
	defer d.ops.Unlock()

	if d.Closed() {
		return transport.NewError(kind, transport.ErrRadioUnavailable, "driver closed")
	}
	if d.scanning.Load() {
		return nil
	}
	if err := transport.FromContext(kind, ctx, "start scan"); err != nil {
		return err
	}
	if !d.IsRadioEnabled() {
		return transport.NewError(kind, transport.ErrRadioUnavailable, "Bluetooth is not enabled")
	}

	// Set before the call so results the radio delivers synchronously are kept.
	d.scanning.Store(true)
	err := transport.Guard(kind, "start scan", func() error {
		return d.radio.StartScan(ScanHandler{OnResult: d.onResult, OnFailed: d.onScanFailed})
	})
	if err != nil {
		d.scanning.Store(false)
		return asTransportError(err, transport.ErrDriverFailure, "failed to start BLE scan")
	}
	d.log().Debug("scan started")
	return nil
}

// StopDiscovery stops the BLE scan.
func (d *Driver) StopDiscovery(ctx context.Context) error {
	d.ops.Lock()
	defer d.ops.Unlock()

	if !d.scanning.Load() {
		return nil
	}
	if err := transport.FromContext(kind, ctx, "stop scan"); err != nil {
		return err
	}
	if !d.IsRadioEnabled() {
		d.scanning.Store(false)
		return transport.NewError(kind, transport.ErrRadioUnavailable, "Bluetooth is not enabled")
	}

	err := transport.Guard(kind, "stop scan", d.radio.StopScan)
	if err != nil {
		return asTransportError(err, transport.ErrDriverFailure, "failed to stop BLE scan")
	}
	d.scanning.Store(false)
	d.log().Debug("scan stopped")
	return nil
}

func (d *Driver) onResult(r ScanResult) {
	if !d.scanning.Load() || r.Address == "" {
		return
	}
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	d.EmitSighting(transport.Sighting{
		Transport: kind,
		ID:        r.Address,
		Timestamp: ts,
		BLE: &transport.BLEAdvertisement{
			LocalName:    r.Name,
			RSSI:         r.RSSI,
			ServiceUUIDs: r.ServiceUUIDs,
		},
	})
}

func (d *Driver) onScanFailed(code FailureCode) {
	if code == ScanFailedAlreadyStarted {
		d.log().Debug("radio reports scan already started")
		return
	}
	if !d.scanning.CompareAndSwap(true, false) {
		return
	}
	d.log().Warn("scan failed", "code", code.String())
	d.EmitFailure(code.Err())
}

// PairedDevices lists devices the adapter is bonded with. A disabled
// adapter yields an empty list.
func (d *Driver) PairedDevices() ([]BondedDevice, error) {
	if !d.IsRadioEnabled() {
		return nil, nil
	}
	var devices []BondedDevice
	err := transport.Guard(kind, "paired devices", func() error {
		var err error
		devices, err = d.radio.BondedDevices()
		return err
	})
	if err != nil {
		return nil, asTransportError(err, transport.ErrDriverFailure, "failed to get paired devices")
	}
	for i := range devices {
		if devices[i].Name == "" {
			devices[i].Name = transport.DefaultDeviceName
		}
	}
	return devices, nil
}

// Connect opens a GATT link to the peer. It returns nil when a link exists.
func (d *Driver) Connect(ctx context.Context, peerID string) error {
	d.mu.Lock()
	if _, ok := d.links[peerID]; ok {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	if !d.IsRadioEnabled() {
		return transport.NewError(kind, transport.ErrRadioUnavailable, "Bluetooth is not enabled")
	}

	entry := &gattEntry{}
	handler := LinkHandler{
		OnData: func(payload []byte) {
			d.EmitEvent(transport.ConnEvent{
				Transport: kind,
				Type:      transport.ConnDataReceived,
				PeerID:    peerID,
				Payload:   payload,
				Timestamp: time.Now(),
			})
		},
		OnLost: func(err error) { d.linkLost(peerID, entry, err) },
	}

	var link GATTLink
	err := transport.Guard(kind, "connect", func() error {
		var err error
		link, err = d.radio.Connect(ctx, peerID, handler)
		return err
	})
	if err != nil {
		if ctxErr := transport.FromContext(kind, ctx, "connect"); ctxErr != nil {
			return ctxErr
		}
		return asTransportError(err, transport.ErrConnectFailure, "failed to connect to device")
	}

	d.mu.Lock()
	if _, ok := d.links[peerID]; ok {
		d.mu.Unlock()
		_ = link.Close()
		return nil
	}
	entry.link = link
	d.links[peerID] = entry
	logger := d.logger
	d.mu.Unlock()

	logger.Debug("gatt link open", "peer_id", peerID)
	return nil
}

func (d *Driver) linkLost(peerID string, entry *gattEntry, err error) {
	d.mu.Lock()
	if d.links[peerID] != entry {
		d.mu.Unlock()
		return
	}
	delete(d.links, peerID)
	logger := d.logger
	d.mu.Unlock()

	logger.Info("gatt link lost", "peer_id", peerID, "error", err)
	d.EmitEvent(transport.ConnEvent{
		Transport: kind,
		Type:      transport.ConnLinkLost,
		PeerID:    peerID,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// Disconnect closes the peer's GATT link.
func (d *Driver) Disconnect(_ context.Context, peerID string) error {
	d.mu.Lock()
	entry, ok := d.links[peerID]
	delete(d.links, peerID)
	d.mu.Unlock()
	if !ok {
		return nil
	}

	if err := transport.Guard(kind, "disconnect", entry.link.Close); err != nil {
		return asTransportError(err, transport.ErrDriverFailure, "failed to disconnect from device")
	}
	return nil
}

// Send writes payload to the peer's data characteristic.
func (d *Driver) Send(ctx context.Context, peerID string, payload []byte) error {
	d.mu.Lock()
	entry, ok := d.links[peerID]
	d.mu.Unlock()
	if !ok {
		return transport.NewError(kind, transport.ErrNotConnected, "no GATT link to "+peerID)
	}
	if err := transport.FromContext(kind, ctx, "send"); err != nil {
		return err
	}

	err := transport.Guard(kind, "send", func() error {
		return entry.link.Write(payload)
	})
	if err != nil {
		return asTransportError(err, transport.ErrDriverFailure, "failed to send data")
	}
	return nil
}

// Close stops scanning, closes all links and the output streams.
func (d *Driver) Close() error {
	d.ops.Lock()
	if d.scanning.Swap(false) && d.radio != nil {
		_ = transport.Guard(kind, "stop scan", d.radio.StopScan)
	}
	d.ops.Unlock()

	d.mu.Lock()
	links := d.links
	d.links = make(map[string]*gattEntry)
	d.mu.Unlock()

	for _, entry := range links {
		_ = transport.Guard(kind, "disconnect", entry.link.Close)
	}
	d.Streams.Close()
	return nil
}

// asTransportError keeps structured errors and wraps anything else in sentinel.
func asTransportError(err, sentinel error, msg string) error {
	var te *transport.Error
	if errors.As(err, &te) {
		return err
	}
	return transport.WrapError(kind, sentinel, msg, err)
}
