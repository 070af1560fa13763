package wifidirect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hybridmesh/mesh-go/pkg/log"
	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/link"
)

const kind = transport.KindWiFiDirect

// Config configures a driver.
type Config struct {
	// LocalID and LocalName are sent in the link hello.
	LocalID   string
	LocalName string

	// Journal receives link frames and state changes. Nil disables it.
	Journal log.Logger

	// HandshakeTimeout bounds the hello exchange on inbound links.
	HandshakeTimeout time.Duration
}

// Driver is the Wi-Fi Direct transport.Driver.
type Driver struct {
	*transport.Streams

	radio Radio
	cfg   Config

	ops      sync.Mutex
	scanning atomic.Bool

	mu     sync.Mutex
	links  map[string]*link.Link
	logger *slog.Logger

	wg sync.WaitGroup
}

var _ transport.Driver = (*Driver)(nil)

// New creates a driver over radio and installs its listener.
func New(radio Radio, cfg Config) *Driver {
	if cfg.Journal == nil {
		cfg.Journal = log.NoopLogger{}
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = link.DefaultHandshakeTimeout
	}
	d := &Driver{
		Streams: transport.NewStreams(0),
		radio:   radio,
		cfg:     cfg,
		links:   make(map[string]*link.Link),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	radio.SetListener(Listener{
		OnPeersChanged:     d.onPeers,
		OnDiscoveryStopped: d.onDiscoveryStopped,
		OnIncoming:         d.onIncoming,
	})
	return d
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

// Kind returns transport.KindWiFiDirect.
func (d *Driver) Kind() transport.Kind { return kind }

// IsRadioEnabled reports whether Wi-Fi P2P is available.
func (d *Driver) IsRadioEnabled() bool {
	var enabled bool
	_ = transport.Guard(kind, "enabled", func() error {
		enabled = d.radio.Enabled()
		return nil
	})
	return enabled
}

// StartDiscovery starts peer discovery and waits for the radio to confirm.
// A confirmation that arrives after ctx ended is undone with a stop.
func (d *Driver) StartDiscovery(ctx context.Context) error {
	d.ops.Lock()
	defer d.ops.Unlock()

	if d.Closed() {
		return transport.NewError(kind, transport.ErrRadioUnavailable, "driver closed")
	}
	if d.scanning.Load() {
		return nil
	}
	if err := transport.FromContext(kind, ctx, "start discovery"); err != nil {
		return err
	}
	if !d.IsRadioEnabled() {
		return transport.NewError(kind, transport.ErrRadioUnavailable, "Wi-Fi is not enabled")
	}

	p := newPending(func(err error) {
		if err == nil {
			d.log().Debug("late discovery start undone")
			_ = guardAction(d.radio.StopPeerDiscovery, ignore)
		}
	})
	if err := guardAction(d.radio.DiscoverPeers, p.listener("Wi-Fi Direct discovery")); err != nil {
		return err
	}
	resolved, err := p.wait(ctx)
	if !resolved {
		return transport.FromContext(kind, ctx, "start discovery")
	}
	if err != nil {
		d.log().Warn("discovery start failed", "error", err)
		return err
	}

	d.scanning.Store(true)
	d.log().Debug("discovery started")
	_ = transport.Guard(kind, "request peers", func() error {
		d.radio.RequestPeers(d.onPeers)
		return nil
	})
	return nil
}

// StopDiscovery stops peer discovery.
func (d *Driver) StopDiscovery(ctx context.Context) error {
	d.ops.Lock()
	defer d.ops.Unlock()

	if !d.scanning.Load() {
		return nil
	}
	if !d.IsRadioEnabled() {
		d.scanning.Store(false)
		return transport.NewError(kind, transport.ErrRadioUnavailable, "Wi-Fi is not enabled")
	}

	p := newPending(func(err error) {
		if err == nil {
			d.scanning.Store(false)
		}
	})
	if err := guardAction(d.radio.StopPeerDiscovery, p.listener("stop Wi-Fi Direct discovery")); err != nil {
		return err
	}
	resolved, err := p.wait(ctx)
	if !resolved {
		return transport.FromContext(kind, ctx, "stop discovery")
	}
	if err != nil {
		return err
	}
	d.scanning.Store(false)
	d.log().Debug("discovery stopped")
	return nil
}

func (d *Driver) onPeers(devices []Device) {
	if !d.scanning.Load() {
		return
	}
	now := time.Now()
	for _, dev := range devices {
		if dev.DeviceAddress == "" {
			continue
		}
		d.EmitSighting(transport.Sighting{
			Transport: kind,
			ID:        dev.DeviceAddress,
			Timestamp: now,
			WiFiDirect: &transport.P2PPeer{
				DeviceName:        dev.DeviceName,
				Status:            dev.Status,
				PrimaryDeviceType: dev.PrimaryDeviceType,
				ServiceIDs:        dev.ServiceIDs,
			},
		})
	}
}

func (d *Driver) onDiscoveryStopped() {
	if !d.scanning.CompareAndSwap(true, false) {
		return
	}
	d.log().Warn("discovery stopped by platform")
	d.EmitFailure(transport.NewError(kind, transport.ErrDriverFailure, "peer discovery stopped by platform"))
}

func (d *Driver) hello() link.Hello {
	return link.Hello{ID: d.cfg.LocalID, Name: d.cfg.LocalName}
}

// Connect joins a group with the peer and opens a link to it.
func (d *Driver) Connect(ctx context.Context, peerID string) error {
	d.mu.Lock()
	_, ok := d.links[peerID]
	d.mu.Unlock()
	if ok {
		return nil
	}

	if !d.IsRadioEnabled() {
		return transport.NewError(kind, transport.ErrRadioUnavailable, "Wi-Fi is not enabled")
	}

	var conn net.Conn
	err := transport.Guard(kind, "connect", func() error {
		var err error
		conn, err = d.radio.Connect(ctx, peerID)
		return err
	})
	if err != nil {
		if ctxErr := transport.FromContext(kind, ctx, "connect"); ctxErr != nil {
			return ctxErr
		}
		var te *transport.Error
		if errors.As(err, &te) {
			return err
		}
		return transport.WrapError(kind, transport.ErrConnectFailure, "failed to connect to device", err)
	}

	l, err := link.Handshake(ctx, conn, kind, d.hello(), d.cfg.Journal)
	if err != nil {
		return transport.WrapError(kind, transport.ErrConnectFailure, "link handshake failed", err)
	}
	d.adopt(peerID, l)
	return nil
}

func (d *Driver) onIncoming(conn net.Conn) {
	d.mu.Lock()
	if d.Closed() {
		d.mu.Unlock()
		conn.Close()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.HandshakeTimeout)
		defer cancel()
		l, err := link.Handshake(ctx, conn, kind, d.hello(), d.cfg.Journal)
		if err != nil {
			d.log().Debug("inbound handshake failed", "error", err)
			return
		}
		d.adopt(l.Remote().ID, l)
	}()
}

// adopt registers l for peerID and serves it. An existing link wins.
func (d *Driver) adopt(peerID string, l *link.Link) {
	d.mu.Lock()
	if _, ok := d.links[peerID]; ok || d.Closed() {
		d.mu.Unlock()
		l.Close()
		return
	}
	d.links[peerID] = l
	logger := d.logger
	d.wg.Add(1)
	d.mu.Unlock()

	logger.Info("link open", "peer_id", peerID, "link_id", l.ID(), "remote_addr", l.RemoteAddr())

	go func() {
		defer d.wg.Done()
		err := l.Serve(func(payload []byte) {
			d.EmitEvent(transport.ConnEvent{
				Transport: kind,
				Type:      transport.ConnDataReceived,
				PeerID:    peerID,
				Payload:   payload,
				Timestamp: time.Now(),
			})
		})

		d.mu.Lock()
		lost := d.links[peerID] == l
		if lost {
			delete(d.links, peerID)
		}
		d.mu.Unlock()
		if !lost {
			return
		}
		if err == nil {
			err = link.ErrClosed
		}
		logger.Info("link lost", "peer_id", peerID, "link_id", l.ID(), "error", err)
		d.EmitEvent(transport.ConnEvent{
			Transport: kind,
			Type:      transport.ConnLinkLost,
			PeerID:    peerID,
			Err:       err,
			Timestamp: time.Now(),
		})
	}()
}

// Disconnect closes the link to the peer.
func (d *Driver) Disconnect(_ context.Context, peerID string) error {
	d.mu.Lock()
	l, ok := d.links[peerID]
	delete(d.links, peerID)
	d.mu.Unlock()
	if !ok {
		return nil
	}
	if err := l.Close(); err != nil {
		return transport.WrapError(kind, transport.ErrDriverFailure, "failed to disconnect from device", err)
	}
	return nil
}

// Send writes payload as one frame on the peer's link.
func (d *Driver) Send(ctx context.Context, peerID string, payload []byte) error {
	d.mu.Lock()
	l, ok := d.links[peerID]
	d.mu.Unlock()
	if !ok {
		return transport.NewError(kind, transport.ErrNotConnected, "no link to "+peerID)
	}
	if err := transport.FromContext(kind, ctx, "send"); err != nil {
		return err
	}

	if err := l.Send(payload); err != nil {
		if errors.Is(err, link.ErrClosed) {
			return transport.WrapError(kind, transport.ErrNotConnected, "link closed", err)
		}
		return transport.WrapError(kind, transport.ErrDriverFailure, "failed to send data", err)
	}
	return nil
}

// Close stops discovery, closes links and the output streams.
func (d *Driver) Close() error {
	d.ops.Lock()
	if d.scanning.Swap(false) {
		_ = guardAction(d.radio.StopPeerDiscovery, ignore)
	}
	d.ops.Unlock()

	// Mark closed first so adopt refuses links from here on.
	d.Streams.Close()

	d.mu.Lock()
	links := d.links
	d.links = make(map[string]*link.Link)
	d.mu.Unlock()
	for _, l := range links {
		l.Close()
	}
	d.wg.Wait()
	return nil
}
