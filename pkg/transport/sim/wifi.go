package sim

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/link"
	"github.com/hybridmesh/mesh-go/pkg/transport/wifidirect"
)

// P2PDevice is a scripted Wi-Fi Direct peer.
type P2PDevice struct {
	Address string
	Name    string
	Mesh    bool
	Status  transport.P2PStatus

	// Delay is when the device first appears in the peer list after
	// discovery starts.
	Delay time.Duration
}

func (d P2PDevice) device() wifidirect.Device {
	dev := wifidirect.Device{
		DeviceAddress:     d.Address,
		DeviceName:        d.Name,
		PrimaryDeviceType: "10-0050F204-5",
		Status:            d.Status,
	}
	if d.Mesh {
		dev.ServiceIDs = []uuid.UUID{transport.MeshServiceUUID}
	}
	return dev
}

// WiFiRadio is a scripted wifidirect.Radio.
type WiFiRadio struct {
	// Refresh is the peer list refresh interval. Zero reports each
	// change once.
	Refresh time.Duration

	// Echo makes links return every sent frame to the sender.
	Echo bool

	mu       sync.Mutex
	enabled  bool
	devices  []P2PDevice
	visible  map[string]bool
	listener wifidirect.Listener
	stop     chan struct{}
	failWith *wifidirect.Reason
	remotes  map[string]*link.Link
}

var _ wifidirect.Radio = (*WiFiRadio)(nil)

// NewWiFiRadio creates an enabled radio with devices.
func NewWiFiRadio(devices ...P2PDevice) *WiFiRadio {
	return &WiFiRadio{
		enabled: true,
		devices: devices,
		visible: make(map[string]bool),
		remotes: make(map[string]*link.Link),
	}
}

// SetEnabled switches Wi-Fi on or off. Switching off ends discovery and
// drops all links.
func (r *WiFiRadio) SetEnabled(on bool) {
	r.mu.Lock()
	r.enabled = on
	var stopped func()
	var remotes []*link.Link
	if !on {
		if r.stop != nil {
			close(r.stop)
			r.stop = nil
			stopped = r.listener.OnDiscoveryStopped
		}
		for _, l := range r.remotes {
			remotes = append(remotes, l)
		}
		r.remotes = make(map[string]*link.Link)
	}
	r.mu.Unlock()

	if stopped != nil {
		stopped()
	}
	for _, l := range remotes {
		l.Close()
	}
}

// FailDiscovery makes the next DiscoverPeers fail with reason.
func (r *WiFiRadio) FailDiscovery(reason wifidirect.Reason) {
	r.mu.Lock()
	r.failWith = &reason
	r.mu.Unlock()
}

// EndDiscovery ends running discovery as the platform does after its
// discovery window.
func (r *WiFiRadio) EndDiscovery() {
	r.mu.Lock()
	var stopped func()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
		stopped = r.listener.OnDiscoveryStopped
	}
	r.mu.Unlock()
	if stopped != nil {
		stopped()
	}
}

// DropLink closes the simulated peer's end of its link.
func (r *WiFiRadio) DropLink(address string) {
	r.mu.Lock()
	l := r.remotes[address]
	delete(r.remotes, address)
	r.mu.Unlock()
	if l != nil {
		l.Close()
	}
}

// Enabled implements wifidirect.Radio.
func (r *WiFiRadio) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// SetListener implements wifidirect.Radio.
func (r *WiFiRadio) SetListener(l wifidirect.Listener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// DiscoverPeers implements wifidirect.Radio.
func (r *WiFiRadio) DiscoverPeers(l wifidirect.ActionListener) {
	r.mu.Lock()
	if !r.enabled {
		r.mu.Unlock()
		go failure(l, wifidirect.ReasonError)
		return
	}
	if reason := r.failWith; reason != nil {
		r.failWith = nil
		r.mu.Unlock()
		go failure(l, *reason)
		return
	}
	if r.stop == nil {
		stop := make(chan struct{})
		r.stop = stop
		for _, d := range r.devices {
			go r.appear(d, stop)
		}
	}
	r.mu.Unlock()
	go success(l)
}

func (r *WiFiRadio) appear(d P2PDevice, stop <-chan struct{}) {
	wait := d.Delay
	for {
		t := time.NewTimer(wait)
		select {
		case <-stop:
			t.Stop()
			return
		case <-t.C:
		}

		r.mu.Lock()
		r.visible[d.Address] = true
		fn := r.listener.OnPeersChanged
		r.mu.Unlock()
		if fn != nil {
			fn(r.peerList())
		}
		if r.Refresh <= 0 {
			return
		}
		wait = r.Refresh
	}
}

func (r *WiFiRadio) peerList() []wifidirect.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []wifidirect.Device
	for _, d := range r.devices {
		if r.visible[d.Address] {
			out = append(out, d.device())
		}
	}
	return out
}

// StopPeerDiscovery implements wifidirect.Radio.
func (r *WiFiRadio) StopPeerDiscovery(l wifidirect.ActionListener) {
	r.mu.Lock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	r.mu.Unlock()
	go success(l)
}

// RequestPeers implements wifidirect.Radio.
func (r *WiFiRadio) RequestPeers(fn func([]wifidirect.Device)) {
	fn(r.peerList())
}

// Connect implements wifidirect.Radio. The returned connection leads to a
// simulated peer that answers the link handshake with its address as id.
func (r *WiFiRadio) Connect(ctx context.Context, deviceAddress string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	var dev *P2PDevice
	for i := range r.devices {
		if r.devices[i].Address == deviceAddress {
			dev = &r.devices[i]
		}
	}
	enabled := r.enabled
	r.mu.Unlock()

	if !enabled {
		return nil, ErrRadioOff
	}
	if dev == nil {
		return nil, errors.New("device not in range")
	}

	local, remote := net.Pipe()
	hello := link.Hello{ID: dev.Address, Name: dev.Name}
	go r.servePeer(remote, hello)
	return local, nil
}

func (r *WiFiRadio) servePeer(conn net.Conn, hello link.Hello) {
	ctx, cancel := context.WithTimeout(context.Background(), link.DefaultHandshakeTimeout)
	l, err := link.Handshake(ctx, conn, transport.KindWiFiDirect, hello, nil)
	cancel()
	if err != nil {
		return
	}

	r.mu.Lock()
	old := r.remotes[hello.ID]
	r.remotes[hello.ID] = l
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}

	_ = l.Serve(func(payload []byte) {
		if r.Echo {
			_ = l.Send(payload)
		}
	})

	r.mu.Lock()
	if r.remotes[hello.ID] == l {
		delete(r.remotes, hello.ID)
	}
	r.mu.Unlock()
}

func success(l wifidirect.ActionListener) {
	if l.OnSuccess != nil {
		l.OnSuccess()
	}
}

func failure(l wifidirect.ActionListener, reason wifidirect.Reason) {
	if l.OnFailure != nil {
		l.OnFailure(reason)
	}
}
