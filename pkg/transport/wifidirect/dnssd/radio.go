// Package dnssd is a wifidirect.Radio for hosts that are already on a P2P
// group (or any shared link). Peers are found by browsing the mesh DNS-SD
// service on the group interface, and links are plain TCP connections to
// the advertised port.
package dnssd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/google/uuid"

	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/wifidirect"
)

// DNS-SD constants.
const (
	// ServiceType is the mesh node service type.
	ServiceType = "_hybridmesh._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the TCP port nodes listen on.
	DefaultPort = 7340

	// DefaultDeviceType is the WPS primary device type published by nodes.
	DefaultDeviceType = "10-0050F204-5"
)

// ErrUnknownPeer is returned by Connect for a peer id not currently browsed.
var ErrUnknownPeer = errors.New("peer not found on the group interface")

// Config configures a radio.
type Config struct {
	// Interface restricts advertising, browsing and listening to one
	// interface, such as p2p-wlan0-0. Empty means all interfaces.
	Interface string

	// Port is the TCP listen port. Zero picks DefaultPort; -1 picks any free port.
	Port int

	// ID and Name identify this node.
	ID   string
	Name string

	DeviceType string

	// TTL is the mDNS record TTL. Zero uses the library default.
	TTL time.Duration

	// DialTimeout bounds each address attempted by Connect.
	DialTimeout time.Duration
}

type peer struct {
	info  PeerInfo
	port  int
	addrs []string
}

// service is the part of a browse entry the radio uses.
type service struct {
	Instance string
	Port     int
	Text     []string
	Addrs    []net.IP
}

func fromEntry(e *zeroconf.ServiceEntry) service {
	addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
	addrs = append(addrs, e.AddrIPv4...)
	addrs = append(addrs, e.AddrIPv6...)
	return service{Instance: e.Instance, Port: e.Port, Text: e.Text, Addrs: addrs}
}

// Radio advertises this node and browses for others.
type Radio struct {
	cfg    Config
	ifaces []net.Interface

	ln     net.Listener
	server *zeroconf.Server

	mu           sync.Mutex
	listener     wifidirect.Listener
	peers        map[string]*peer // keyed by node id
	instances    map[string]string
	browseCancel context.CancelFunc
	closed       bool

	wg     sync.WaitGroup
	logger *slog.Logger
}

var _ wifidirect.Radio = (*Radio)(nil)

// Listen opens the TCP listener and registers the DNS-SD service.
func Listen(cfg Config) (*Radio, error) {
	if cfg.ID == "" {
		return nil, ErrMissingID
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}
	if cfg.DeviceType == "" {
		cfg.DeviceType = DefaultDeviceType
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	instance := cfg.ID
	if err := ValidateInstanceName(instance); err != nil {
		return nil, err
	}

	r := &Radio{
		cfg:       cfg,
		peers:     make(map[string]*peer),
		instances: make(map[string]string),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if cfg.Interface != "" {
		iface, err := net.InterfaceByName(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("interface %s: %w", cfg.Interface, err)
		}
		r.ifaces = []net.Interface{*iface}
	}

	port := cfg.Port
	switch {
	case port == 0:
		port = DefaultPort
	case port < 0:
		port = 0
	}
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	r.ln = ln

	var opts []zeroconf.ServerOption
	if cfg.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(cfg.TTL.Seconds())))
	}
	txt := EncodePeerTXT(PeerInfo{
		ID:         cfg.ID,
		Name:       cfg.Name,
		DeviceType: cfg.DeviceType,
		Services:   []uuid.UUID{transport.MeshServiceUUID},
	})
	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		ln.Addr().(*net.TCPAddr).Port,
		TXTRecordsToStrings(txt),
		r.ifaces,
		opts...,
	)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to register mesh service: %w", err)
	}
	r.server = server

	r.wg.Add(1)
	go r.acceptLoop()
	return r, nil
}

// SetLogger sets the operational logger.
func (r *Radio) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Addr returns the TCP listen address.
func (r *Radio) Addr() net.Addr { return r.ln.Addr() }

// Enabled reports whether the configured interface exists and is up.
func (r *Radio) Enabled() bool {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return false
	}
	if r.cfg.Interface == "" {
		return true
	}
	iface, err := net.InterfaceByName(r.cfg.Interface)
	return err == nil && iface.Flags&net.FlagUp != 0
}

// SetListener installs the notification listener.
func (r *Radio) SetListener(l wifidirect.Listener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// DiscoverPeers starts browsing. Browsing runs until StopPeerDiscovery.
func (r *Radio) DiscoverPeers(l wifidirect.ActionListener) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		fail(l, wifidirect.ReasonError)
		return
	}
	if r.browseCancel != nil {
		r.mu.Unlock()
		succeed(l)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.browseCancel = cancel
	r.mu.Unlock()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		removedCh := removed
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				r.handleEntry(fromEntry(e))
			case e, ok := <-removedCh:
				if !ok {
					removedCh = nil
					continue
				}
				r.handleRemoved(fromEntry(e))
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		defer r.wg.Done()
		var opts []zeroconf.ClientOption
		if len(r.ifaces) > 0 {
			opts = append(opts, zeroconf.SelectIfaces(r.ifaces))
		}
		err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
		if ctx.Err() != nil {
			return
		}
		r.log().Warn("browse ended", "error", err)
		r.mu.Lock()
		r.browseCancel = nil
		onStopped := r.listener.OnDiscoveryStopped
		r.mu.Unlock()
		cancel()
		if onStopped != nil {
			onStopped()
		}
	}()

	succeed(l)
}

// StopPeerDiscovery stops browsing. Known peers are kept.
func (r *Radio) StopPeerDiscovery(l wifidirect.ActionListener) {
	r.mu.Lock()
	cancel := r.browseCancel
	r.browseCancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	succeed(l)
}

// RequestPeers reports the current peer list.
func (r *Radio) RequestPeers(fn func([]wifidirect.Device)) {
	fn(r.devices())
}

func (r *Radio) handleEntry(svc service) {
	info, err := DecodePeerTXT(StringsToTXTRecords(svc.Text))
	if err != nil || info.ID == r.cfg.ID {
		return
	}
	addrs := make([]string, 0, len(svc.Addrs))
	for _, ip := range svc.Addrs {
		addrs = append(addrs, ip.String())
	}

	r.mu.Lock()
	p, ok := r.peers[info.ID]
	if ok {
		p.info = info
		p.port = svc.Port
		p.addrs = mergeAddresses(p.addrs, addrs)
	} else {
		r.peers[info.ID] = &peer{info: info, port: svc.Port, addrs: addrs}
	}
	r.instances[svc.Instance] = info.ID
	r.mu.Unlock()

	r.notifyPeers()
}

func (r *Radio) handleRemoved(svc service) {
	r.mu.Lock()
	id, ok := r.instances[svc.Instance]
	p := r.peers[id]
	if !ok || p == nil {
		r.mu.Unlock()
		return
	}
	gone := make([]string, 0, len(svc.Addrs))
	for _, ip := range svc.Addrs {
		gone = append(gone, ip.String())
	}
	p.addrs = removeAddresses(p.addrs, gone)
	if len(p.addrs) == 0 || len(gone) == 0 {
		delete(r.peers, id)
		delete(r.instances, svc.Instance)
	}
	r.mu.Unlock()

	r.notifyPeers()
}

func (r *Radio) notifyPeers() {
	r.mu.Lock()
	fn := r.listener.OnPeersChanged
	r.mu.Unlock()
	if fn != nil {
		fn(r.devices())
	}
}

func (r *Radio) devices() []wifidirect.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wifidirect.Device, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, wifidirect.Device{
			DeviceAddress:     p.info.ID,
			DeviceName:        p.info.Name,
			PrimaryDeviceType: p.info.DeviceType,
			Status:            transport.P2PAvailable,
			ServiceIDs:        p.info.Services,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceAddress < out[j].DeviceAddress })
	return out
}

// Connect dials the peer's advertised addresses in order.
func (r *Radio) Connect(ctx context.Context, deviceAddress string) (net.Conn, error) {
	r.mu.Lock()
	p, ok := r.peers[deviceAddress]
	var addrs []string
	var port int
	if ok {
		addrs = append(addrs, p.addrs...)
		port = p.port
	}
	r.mu.Unlock()
	if !ok || len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, deviceAddress)
	}

	dialer := net.Dialer{Timeout: r.cfg.DialTimeout}
	var lastErr error
	for _, addr := range addrs {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (r *Radio) acceptLoop() {
	defer r.wg.Done()
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.log().Debug("accept failed", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		r.mu.Lock()
		onIncoming := r.listener.OnIncoming
		r.mu.Unlock()
		if onIncoming == nil {
			conn.Close()
			continue
		}
		onIncoming(conn)
	}
}

// Close stops browsing, unregisters the service and closes the listener.
func (r *Radio) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	cancel := r.browseCancel
	r.browseCancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.server.Shutdown()
	err := r.ln.Close()
	r.wg.Wait()
	return err
}

func (r *Radio) log() *slog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger
}

func succeed(l wifidirect.ActionListener) {
	if l.OnSuccess != nil {
		l.OnSuccess()
	}
}

func fail(l wifidirect.ActionListener, reason wifidirect.Reason) {
	if l.OnFailure != nil {
		l.OnFailure(reason)
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses returns addresses without the ones in gone.
func removeAddresses(addresses, gone []string) []string {
	drop := make(map[string]bool, len(gone))
	for _, addr := range gone {
		drop[addr] = true
	}
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !drop[addr] {
			result = append(result, addr)
		}
	}
	return result
}
