package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/ble"
)

// ErrRadioOff is returned by radio calls while the radio is disabled.
var ErrRadioOff = errors.New("radio off")

// BLEDevice is a scripted BLE peripheral.
type BLEDevice struct {
	Address string
	Name    string
	RSSI    int
	Mesh    bool

	// Delay is when the device is first reported after scan start.
	Delay time.Duration
}

// BLERadio is a scripted ble.Radio.
type BLERadio struct {
	// Refresh is the re-advertise interval. Zero reports each device once.
	Refresh time.Duration

	// Echo makes links return every written payload as received data.
	Echo bool

	mu       sync.Mutex
	enabled  bool
	devices  []BLEDevice
	bonded   []ble.BondedDevice
	handler  ble.ScanHandler
	stop     chan struct{}
	links    map[string]*bleLink
	failNext error
}

var _ ble.Radio = (*BLERadio)(nil)

// NewBLERadio creates an enabled radio with devices.
func NewBLERadio(devices ...BLEDevice) *BLERadio {
	return &BLERadio{
		enabled: true,
		devices: devices,
		links:   make(map[string]*bleLink),
	}
}

// SetEnabled switches the radio on or off. Switching off ends a running
// scan with SCAN_FAILED_INTERNAL_ERROR and drops all links.
func (r *BLERadio) SetEnabled(on bool) {
	r.mu.Lock()
	r.enabled = on
	var h ble.ScanHandler
	var links []*bleLink
	if !on {
		if r.stop != nil {
			close(r.stop)
			r.stop = nil
			h = r.handler
		}
		for _, l := range r.links {
			links = append(links, l)
		}
		r.links = make(map[string]*bleLink)
	}
	r.mu.Unlock()

	if h.OnFailed != nil {
		h.OnFailed(ble.ScanFailedInternalError)
	}
	for _, l := range links {
		l.lose(ErrRadioOff)
	}
}

// SetBonded sets the paired device list.
func (r *BLERadio) SetBonded(devices ...ble.BondedDevice) {
	r.mu.Lock()
	r.bonded = devices
	r.mu.Unlock()
}

// FailNextConnect makes the next Connect return err.
func (r *BLERadio) FailNextConnect(err error) {
	r.mu.Lock()
	r.failNext = err
	r.mu.Unlock()
}

// FailScan reports an asynchronous scan failure and ends the running scan.
func (r *BLERadio) FailScan(code ble.FailureCode) {
	r.mu.Lock()
	h := r.handler
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	r.mu.Unlock()
	if h.OnFailed != nil {
		h.OnFailed(code)
	}
}

// Advertise reports d immediately to a running scan.
func (r *BLERadio) Advertise(d BLEDevice) {
	r.mu.Lock()
	h := r.handler
	scanning := r.stop != nil
	r.mu.Unlock()
	if scanning && h.OnResult != nil {
		h.OnResult(d.result())
	}
}

// DropLink makes the link to address fail as if the peer went away.
func (r *BLERadio) DropLink(address string) {
	r.mu.Lock()
	l := r.links[address]
	delete(r.links, address)
	r.mu.Unlock()
	if l != nil {
		l.lose(errors.New("peer out of range"))
	}
}

// Enabled implements ble.Radio.
func (r *BLERadio) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// StartScan implements ble.Radio.
func (r *BLERadio) StartScan(h ble.ScanHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return ErrRadioOff
	}
	if r.stop != nil {
		return nil
	}
	stop := make(chan struct{})
	r.stop = stop
	r.handler = h
	for _, d := range r.devices {
		go r.replay(d, h, stop)
	}
	return nil
}

func (r *BLERadio) replay(d BLEDevice, h ble.ScanHandler, stop <-chan struct{}) {
	wait := d.Delay
	for {
		t := time.NewTimer(wait)
		select {
		case <-stop:
			t.Stop()
			return
		case <-t.C:
		}
		if h.OnResult != nil {
			h.OnResult(d.result())
		}
		if r.Refresh <= 0 {
			return
		}
		wait = r.Refresh
	}
}

func (d BLEDevice) result() ble.ScanResult {
	res := ble.ScanResult{Address: d.Address, Name: d.Name, RSSI: d.RSSI, Timestamp: time.Now()}
	if d.Mesh {
		res.ServiceUUIDs = []uuid.UUID{transport.MeshServiceUUID}
	}
	return res
}

// StopScan implements ble.Radio.
func (r *BLERadio) StopScan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	return nil
}

// BondedDevices implements ble.Radio.
func (r *BLERadio) BondedDevices() ([]ble.BondedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ble.BondedDevice(nil), r.bonded...), nil
}

// Connect implements ble.Radio. Any scripted device address connects.
func (r *BLERadio) Connect(ctx context.Context, address string, h ble.LinkHandler) (ble.GATTLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return nil, ErrRadioOff
	}
	if err := r.failNext; err != nil {
		r.failNext = nil
		return nil, err
	}
	known := false
	for _, d := range r.devices {
		known = known || d.Address == address
	}
	if !known {
		return nil, errors.New("device not in range")
	}
	l := &bleLink{radio: r, address: address, handler: h, echo: r.Echo}
	r.links[address] = l
	return l, nil
}

type bleLink struct {
	radio   *BLERadio
	address string
	handler ble.LinkHandler
	echo    bool

	mu     sync.Mutex
	closed bool
}

func (l *bleLink) Write(payload []byte) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return errors.New("link closed")
	}
	if l.echo && l.handler.OnData != nil {
		echoed := append([]byte(nil), payload...)
		go l.handler.OnData(echoed)
	}
	return nil
}

func (l *bleLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.radio.mu.Lock()
	if l.radio.links[l.address] == l {
		delete(l.radio.links, l.address)
	}
	l.radio.mu.Unlock()
	return nil
}

func (l *bleLink) lose(err error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	if l.handler.OnLost != nil {
		l.handler.OnLost(err)
	}
}
