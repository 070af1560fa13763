package mesh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hybridmesh/mesh-go/pkg/connection"
	"github.com/hybridmesh/mesh-go/pkg/eventbus"
	"github.com/hybridmesh/mesh-go/pkg/log"
	"github.com/hybridmesh/mesh-go/pkg/registry"
	"github.com/hybridmesh/mesh-go/pkg/scan"
	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/ble"
)

// Defaults.
const (
	DefaultOperationTimeout = 15 * time.Second
	DefaultSweepInterval    = 30 * time.Second
)

// Errors returned by the service.
var (
	ErrAlreadyStarted = errors.New("service already started")
	ErrClosed         = errors.New("service closed")
)

// ServiceState is the lifecycle state of a Service.
type ServiceState uint8

const (
	StateIdle ServiceState = iota
	StateRunning
	StateClosed
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Service.
type Config struct {
	// OperationTimeout bounds every operation. Zero means
	// DefaultOperationTimeout; negative disables the bound.
	OperationTimeout time.Duration

	// SweepInterval is the period of the stale peer sweep. Zero means
	// DefaultSweepInterval; negative disables the sweep.
	SweepInterval time.Duration

	// Registry configures the peer registry.
	Registry registry.Config

	// Connection configures the orchestrator.
	Connection connection.Config

	// StopTimeout bounds a scan stop that outlives its caller.
	StopTimeout time.Duration

	// Journal receives every bus event. May be nil.
	Journal log.Logger
}

// pairedLister is implemented by drivers that know bonded devices.
type pairedLister interface {
	PairedDevices() ([]ble.BondedDevice, error)
}

// Service is the hybrid mesh core. It owns its drivers and closes them on
// Close.
type Service struct {
	drivers  map[transport.Kind]transport.Driver
	kinds    []transport.Kind
	registry *registry.Registry
	bus      *eventbus.Bus
	scans    map[transport.Kind]*scan.Controller
	conns    *connection.Orchestrator
	recorder *log.Recorder

	opTimeout     time.Duration
	sweepInterval time.Duration

	mu     sync.Mutex
	state  ServiceState
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
}

// New assembles a service around drivers. At most one driver per transport
// is used; later duplicates are ignored.
func New(drivers []transport.Driver, cfg Config) *Service {
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	s := &Service{
		drivers:       make(map[transport.Kind]transport.Driver, len(drivers)),
		registry:      registry.NewWithConfig(cfg.Registry),
		bus:           eventbus.New(),
		scans:         make(map[transport.Kind]*scan.Controller, len(drivers)),
		opTimeout:     cfg.OperationTimeout,
		sweepInterval: cfg.SweepInterval,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	unique := make([]transport.Driver, 0, len(drivers))
	for _, d := range drivers {
		k := d.Kind()
		if _, dup := s.drivers[k]; dup {
			continue
		}
		s.drivers[k] = d
		s.kinds = append(s.kinds, k)
		unique = append(unique, d)
		s.scans[k] = scan.New(d, s.bus, scan.Config{
			Sink:        s.handleSighting,
			StopTimeout: cfg.StopTimeout,
		})
	}
	s.conns = connection.New(unique, s.registry, s.bus, cfg.Connection)
	if cfg.Journal != nil {
		s.recorder = log.NewRecorder(s.bus, cfg.Journal)
	}
	return s
}

// SetLogger sets the operational logger on the service and its components.
func (s *Service) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()

	s.registry.SetLogger(logger.With("component", "registry"))
	s.bus.SetLogger(logger.With("component", "eventbus"))
	s.conns.SetLogger(logger.With("component", "connection"))
	for _, c := range s.scans {
		c.SetLogger(logger.With("component", "scan"))
	}
}

// State returns the service state.
func (s *Service) State() ServiceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transports returns the transports the service has a driver for, in the
// order they were given.
func (s *Service) Transports() []transport.Kind {
	return append([]transport.Kind(nil), s.kinds...)
}

// Start runs the periodic stale sweep. Operations are usable before Start;
// without it stale peers are only hidden from reads, never evicted.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateClosed:
		return ErrClosed
	}

	ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.state = StateRunning

	if s.sweepInterval > 0 && s.registry.StaleAfter() > 0 {
		s.wg.Add(1)
		go s.sweepLoop(ctx)
	}
	s.logger.Info("mesh service started", "transports", len(s.kinds))
	return nil
}

// Close stops scanning, ends every session and closes the drivers.
// Close is idempotent.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	ctx, done := s.bound(context.Background())
	defer done()
	for _, c := range s.scans {
		if err := c.Stop(ctx); err != nil {
			s.logger.Debug("stop scan on close", "transport", c.Kind().String(), "error", err)
		}
	}
	for _, sess := range s.conns.Sessions() {
		_ = s.conns.Disconnect(ctx, sess.PeerID)
	}

	for _, c := range s.scans {
		c.Close()
	}
	s.conns.Close()

	var errs []error
	for _, k := range s.kinds {
		if err := s.drivers[k].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s driver: %w", k, err))
		}
	}

	if s.recorder != nil {
		s.recorder.Close()
	}
	s.bus.Close()
	s.logger.Info("mesh service closed")
	return errors.Join(errs...)
}

// StartScan starts discovery on one transport.
func (s *Service) StartScan(ctx context.Context, k transport.Kind) error {
	c, err := s.controller(k)
	if err != nil {
		return err
	}
	return s.run(ctx, k, "start scan", c.Start)
}

// StopScan stops discovery on one transport.
func (s *Service) StopScan(ctx context.Context, k transport.Kind) error {
	c, err := s.controller(k)
	if err != nil {
		return err
	}
	return s.run(ctx, k, "stop scan", c.Stop)
}

// IsScanning reports whether the transport is scanning.
func (s *Service) IsScanning(k transport.Kind) bool {
	c, ok := s.scans[k]
	return ok && c.IsScanning()
}

// ScanState returns the scan session state of a transport.
func (s *Service) ScanState(k transport.Kind) scan.State {
	c, ok := s.scans[k]
	if !ok {
		return scan.StateIdle
	}
	return c.State()
}

// StartScanAll starts discovery on every transport. Every transport is
// attempted; the first failure is returned.
func (s *Service) StartScanAll(ctx context.Context) error {
	return s.fanOut(ctx, s.StartScan)
}

// StopScanAll stops discovery on every transport.
func (s *Service) StopScanAll(ctx context.Context) error {
	return s.fanOut(ctx, s.StopScan)
}

func (s *Service) fanOut(ctx context.Context, op func(context.Context, transport.Kind) error) error {
	var g errgroup.Group
	for _, k := range s.kinds {
		g.Go(func() error {
			return op(ctx, k)
		})
	}
	return g.Wait()
}

// KnownDevices returns the peers seen within the staleness window.
func (s *Service) KnownDevices() []registry.PeerDevice {
	return s.registry.Peers()
}

// DevicesByTransport returns the current peers seen on one transport.
func (s *Service) DevicesByTransport(k transport.Kind) []registry.PeerDevice {
	return s.registry.ByTransport(k)
}

// Topology estimates which current peers can reach which others, from
// shared transports and signal strength.
func (s *Service) Topology() registry.Topology {
	return s.registry.Topology()
}

// ClearDevices forgets every known peer.
func (s *Service) ClearDevices() {
	s.registry.Clear()
}

// ConnectToDevice connects to a known peer over the transport chosen by the
// connection policy. If ctx or the operation timeout ends first, the
// connect keeps running and its outcome is reported on the bus.
func (s *Service) ConnectToDevice(ctx context.Context, peerID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.run(ctx, 0, "connect", func(ctx context.Context) error {
		return s.conns.Connect(ctx, peerID)
	})
}

// DisconnectFromDevice ends the peer's session.
func (s *Service) DisconnectFromDevice(ctx context.Context, peerID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.run(ctx, 0, "disconnect", func(ctx context.Context) error {
		return s.conns.Disconnect(ctx, peerID)
	})
}

// SendData submits payload to a connected peer.
func (s *Service) SendData(ctx context.Context, peerID string, payload []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.run(ctx, 0, "send", func(ctx context.Context) error {
		return s.conns.Send(ctx, peerID, payload)
	})
}

// ConnectionState returns the peer's connection state.
func (s *Service) ConnectionState(peerID string) connection.State {
	return s.conns.State(peerID)
}

// Sessions returns every live connection session.
func (s *Service) Sessions() []connection.Session {
	return s.conns.Sessions()
}

// IsRadioEnabled reports whether the transport's radio is on. Transports
// without a driver report false.
func (s *Service) IsRadioEnabled(k transport.Kind) bool {
	d, ok := s.drivers[k]
	if !ok {
		return false
	}
	enabled := false
	err := transport.Guard(k, "radio enabled", func() error {
		enabled = d.IsRadioEnabled()
		return nil
	})
	return err == nil && enabled
}

// PairedDevices lists the BLE devices bonded with this node. The result is
// not merged into the registry.
func (s *Service) PairedDevices(ctx context.Context) ([]registry.PeerDevice, error) {
	d, ok := s.drivers[transport.KindBLE]
	if !ok {
		return nil, nil
	}
	lister, ok := d.(pairedLister)
	if !ok {
		return nil, nil
	}

	var bonded []ble.BondedDevice
	err := s.run(ctx, transport.KindBLE, "paired devices", func(ctx context.Context) error {
		type result struct {
			devices []ble.BondedDevice
			err     error
		}
		ch := make(chan result, 1)
		go func() {
			devices, err := lister.PairedDevices()
			ch <- result{devices, err}
		}()
		select {
		case r := <-ch:
			bonded = r.devices
			return r.err
		case <-ctx.Done():
			return transport.FromContext(transport.KindBLE, ctx, "paired devices")
		}
	})
	if err != nil {
		return nil, err
	}

	peers := make([]registry.PeerDevice, 0, len(bonded))
	for _, b := range bonded {
		peers = append(peers, registry.PeerDevice{
			Transport: transport.KindBLE,
			ID:        b.Address,
			Name:      b.Name,
			Address:   b.Address,
		})
	}
	return peers, nil
}

// Subscribe returns a subscription to the given event families, or to every
// family when none are given.
func (s *Service) Subscribe(families ...eventbus.Family) *eventbus.Subscription {
	return s.bus.Subscribe(families...)
}

// SubscribeFunc calls fn for each event of the given families.
func (s *Service) SubscribeFunc(fn func(eventbus.Event), families ...eventbus.Family) *eventbus.Subscription {
	return s.bus.SubscribeFunc(fn, families...)
}

func (s *Service) controller(k transport.Kind) (*scan.Controller, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	c, ok := s.scans[k]
	if !ok {
		return nil, transport.NewError(k, transport.ErrRadioUnavailable, fmt.Sprintf("no %s driver", k))
	}
	return c, nil
}

func (s *Service) checkOpen() error {
	if s.State() == StateClosed {
		return ErrClosed
	}
	return nil
}

// bound derives the operation context.
func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// run calls fn under the operation timeout. A failure caused by the timeout
// is reported as TIMEOUT.
func (s *Service) run(ctx context.Context, k transport.Kind, op string, fn func(context.Context) error) error {
	opCtx, cancel := s.bound(ctx)
	defer cancel()

	err := fn(opCtx)
	if err == nil || errors.Is(err, transport.ErrTimeout) {
		return err
	}
	if ctxErr := transport.FromContext(k, opCtx, op); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

// handleSighting merges an accepted sighting and announces the peer.
func (s *Service) handleSighting(sighting transport.Sighting) {
	peer, created, err := s.registry.Upsert(sighting)
	if err != nil {
		s.logger.Debug("dropped sighting", "transport", sighting.Transport.String(), "error", err)
		return
	}
	if created {
		s.logger.Debug("new peer", "transport", peer.Transport.String(), "peer_id", peer.ID, "name", peer.Name)
	}
	s.bus.Publish(eventbus.NewDiscovery(peer.Transport, discoveryEvent(peer)))
}

func (s *Service) sweepLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep evicts peers that went stale at now and announces each of them as
// offline. It returns the evicted peers.
func (s *Service) Sweep(now time.Time) []registry.PeerDevice {
	removed := s.registry.EvictStale(now, s.registry.StaleAfter())
	for _, p := range removed {
		s.bus.Publish(eventbus.NewDiscovery(p.Transport, discoveryEvent(p)))
	}
	return removed
}

func discoveryEvent(p registry.PeerDevice) eventbus.DiscoveryEvent {
	return eventbus.DiscoveryEvent{
		ID:             p.ID,
		Name:           p.Name,
		Address:        p.Address,
		SignalStrength: p.SignalStrength,
		IsOnline:       p.Online,
		LastSeen:       p.LastSeen,
		HasMeshService: p.HasMeshService,
	}
}
