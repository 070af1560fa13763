// Package bluez is a ble.Radio backed by the host Bluetooth adapter through
// tinygo.org/x/bluetooth (BlueZ over D-Bus on Linux).
package bluez

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"

	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/ble"
)

// ErrUnknownAddress is returned by Connect for an address the adapter has
// not seen during a scan.
var ErrUnknownAddress = errors.New("address not seen by adapter")

var (
	meshService = toBluetooth(transport.MeshServiceUUID)
	meshData    = toBluetooth(ble.MeshDataCharacteristicUUID)
)

func toBluetooth(id uuid.UUID) bluetooth.UUID {
	return bluetooth.NewUUID([16]byte(id))
}

// Radio drives one adapter.
type Radio struct {
	adapter *bluetooth.Adapter

	mu      sync.Mutex
	enabled bool
	seen    addressBook
	links   map[string]*link
	stopped chan struct{}
}

var _ ble.Radio = (*Radio)(nil)

// Open enables adapter, or bluetooth.DefaultAdapter when nil.
func Open(adapter *bluetooth.Adapter) (*Radio, error) {
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	r := &Radio{
		adapter: adapter,
		seen:    newAddressBook(),
		links:   make(map[string]*link),
	}
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}
	r.enabled = true
	adapter.SetConnectHandler(r.onConnectChange)
	return r, nil
}

// Enabled reports whether the adapter was enabled.
func (r *Radio) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// StartScan runs adapter.Scan in the background. Scan blocks until
// StopScan, so an early return with an error is reported as a failure.
func (r *Radio) StartScan(h ble.ScanHandler) error {
	r.mu.Lock()
	if r.stopped != nil {
		r.mu.Unlock()
		return nil
	}
	stopped := make(chan struct{})
	r.stopped = stopped
	r.mu.Unlock()

	go func() {
		defer close(stopped)
		err := r.adapter.Scan(func(_ *bluetooth.Adapter, res bluetooth.ScanResult) {
			r.onScanResult(h, res)
		})
		r.mu.Lock()
		if r.stopped == stopped {
			r.stopped = nil
		}
		r.mu.Unlock()
		if err != nil && h.OnFailed != nil {
			h.OnFailed(ble.ScanFailedInternalError)
		}
	}()
	return nil
}

func (r *Radio) onScanResult(h ble.ScanHandler, res bluetooth.ScanResult) {
	addr := res.Address.String()

	r.mu.Lock()
	r.seen.note(addr, res.Address, time.Now(), r.linkedLocked)
	r.mu.Unlock()

	var services []uuid.UUID
	if res.HasServiceUUID(meshService) {
		services = append(services, transport.MeshServiceUUID)
	}
	if h.OnResult != nil {
		h.OnResult(ble.ScanResult{
			Address:      addr,
			Name:         res.LocalName(),
			RSSI:         int(res.RSSI),
			ServiceUUIDs: services,
		})
	}
}

// linkedLocked reports whether address has an open link. Caller must hold
// r.mu.
func (r *Radio) linkedLocked(address string) bool {
	_, ok := r.links[address]
	return ok
}

// StopScan stops the running scan and waits for Scan to return.
func (r *Radio) StopScan() error {
	r.mu.Lock()
	stopped := r.stopped
	r.stopped = nil
	r.seen.prune(time.Now(), r.linkedLocked)
	r.mu.Unlock()
	if stopped == nil {
		return nil
	}
	if err := r.adapter.StopScan(); err != nil {
		return err
	}
	<-stopped
	return nil
}

// BondedDevices is not exposed by the adapter API; the list is empty.
func (r *Radio) BondedDevices() ([]ble.BondedDevice, error) {
	return nil, nil
}

// Connect connects to a scanned address and subscribes to the mesh data
// characteristic.
func (r *Radio) Connect(ctx context.Context, address string, h ble.LinkHandler) (ble.GATTLink, error) {
	r.mu.Lock()
	addr, ok := r.seen.lookup(address)
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, address)
	}

	type result struct {
		l   *link
		err error
	}
	done := make(chan result, 1)
	go func() {
		l, err := r.dial(addr, h)
		done <- result{l, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		r.mu.Lock()
		r.links[address] = res.l
		r.mu.Unlock()
		return res.l, nil
	case <-ctx.Done():
		// Tear down a connection that completes after the caller gave up.
		go func() {
			if res := <-done; res.err == nil {
				_ = res.l.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (r *Radio) dial(addr bluetooth.Address, h ble.LinkHandler) (*link, error) {
	device, err := r.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{meshService})
	if err != nil || len(services) == 0 {
		_ = device.Disconnect()
		return nil, fmt.Errorf("discover mesh service: %w", orMissing(err))
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{meshData})
	if err != nil || len(chars) == 0 {
		_ = device.Disconnect()
		return nil, fmt.Errorf("discover mesh characteristic: %w", orMissing(err))
	}

	l := &link{radio: r, address: addr.String(), device: device, data: chars[0], onLost: h.OnLost}
	if h.OnData != nil {
		if err := l.data.EnableNotifications(func(buf []byte) {
			payload := make([]byte, len(buf))
			copy(payload, buf)
			h.OnData(payload)
		}); err != nil {
			_ = device.Disconnect()
			return nil, fmt.Errorf("enable notifications: %w", err)
		}
	}
	return l, nil
}

func orMissing(err error) error {
	if err != nil {
		return err
	}
	return errors.New("not found")
}

func (r *Radio) onConnectChange(device bluetooth.Device, connected bool) {
	if connected {
		return
	}
	address := device.Address.String()

	r.mu.Lock()
	l, ok := r.links[address]
	delete(r.links, address)
	r.mu.Unlock()

	if ok && l.markClosed() && l.onLost != nil {
		l.onLost(errors.New("device disconnected"))
	}
}

type link struct {
	radio   *Radio
	address string
	device  bluetooth.Device
	data    bluetooth.DeviceCharacteristic
	onLost  func(error)

	mu     sync.Mutex
	closed bool
}

func (l *link) markClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.closed = true
	return true
}

// Write sends payload without a write response.
func (l *link) Write(payload []byte) error {
	_, err := l.data.WriteWithoutResponse(payload)
	return err
}

// Close disconnects the device. The loss callback is not invoked.
func (l *link) Close() error {
	if !l.markClosed() {
		return nil
	}
	l.radio.mu.Lock()
	if l.radio.links[l.address] == l {
		delete(l.radio.links, l.address)
	}
	l.radio.mu.Unlock()
	return l.device.Disconnect()
}
