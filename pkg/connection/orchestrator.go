package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hybridmesh/mesh-go/pkg/eventbus"
	"github.com/hybridmesh/mesh-go/pkg/registry"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// Defaults for Config.
const (
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 10 * time.Second
)

var (
	// ErrCancelled is wrapped by the error a connect returns when a
	// Disconnect arrived while it was in flight.
	ErrCancelled = errors.New("connect cancelled by disconnect")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("orchestrator closed")
)

// Directory is the peer lookup the orchestrator needs.
type Directory interface {
	Lookup(id string) []registry.PeerDevice
	SetConnectionStatus(k transport.Kind, id string, status registry.ConnectionStatus) bool
}

// Publisher receives connection events.
type Publisher interface {
	Publish(ev eventbus.Event)
}

// Config configures an orchestrator.
type Config struct {
	// MaxAttempts is the number of driver connect calls before failing.
	MaxAttempts int

	// AttemptTimeout bounds each driver connect call.
	AttemptTimeout time.Duration

	// Backoff is the delay policy between attempts.
	Backoff BackoffConfig

	// Policy selects the transport. Defaults to MostRecent.
	Policy Policy
}

type session struct {
	peerID      string
	transport   transport.Kind
	state       State
	attempts    int
	connectedAt time.Time
	lastErr     error

	// gen changes when a newer intent supersedes the running connect.
	gen    uint64
	cancel context.CancelFunc

	// settled is closed once a Disconnect of this session has returned.
	settled chan struct{}
}

func (s *session) snapshot() Session {
	return Session{
		PeerID:      s.peerID,
		Transport:   s.transport,
		State:       s.state,
		Attempts:    s.attempts,
		ConnectedAt: s.connectedAt,
		LastError:   s.lastErr,
	}
}

// Orchestrator connects, disconnects and sends to peers over the drivers.
type Orchestrator struct {
	drivers map[transport.Kind]transport.Driver
	dir     Directory
	bus     Publisher
	cfg     Config

	flights singleflight.Group

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
}

// New creates an orchestrator and starts pumping each driver's connection
// events.
func New(drivers []transport.Driver, dir Directory, bus Publisher, cfg Config) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.Policy == nil {
		cfg.Policy = MostRecent
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		drivers:  make(map[transport.Kind]transport.Driver, len(drivers)),
		dir:      dir,
		bus:      bus,
		cfg:      cfg,
		sessions: make(map[string]*session),
		ctx:      ctx,
		cancel:   cancel,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, d := range drivers {
		o.drivers[d.Kind()] = d
	}
	for _, d := range o.drivers {
		o.wg.Add(1)
		go o.pumpEvents(d)
	}
	return o
}

// SetLogger sets the operational logger.
func (o *Orchestrator) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	o.mu.Lock()
	o.logger = logger
	o.mu.Unlock()
}

// State returns the peer's connection state; Disconnected without a session.
func (o *Orchestrator) State(peerID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.sessions[peerID]; ok {
		return s.state
	}
	return StateDisconnected
}

// Session returns a snapshot of the peer's session.
func (o *Orchestrator) Session(peerID string) (Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[peerID]
	if !ok {
		return Session{}, false
	}
	return s.snapshot(), true
}

// Sessions returns snapshots of all sessions ordered by peer id.
func (o *Orchestrator) Sessions() []Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		out = append(out, s.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeerID < out[j].PeerID })
	return out
}

// Connect establishes a session with peerID. The peer must be in the
// directory on a transport with a registered driver, otherwise Connect
// fails with PEER_UNKNOWN without calling any driver. Concurrent calls for
// the same peer share one attempt sequence. ctx bounds only the wait for the
// result.
func (o *Orchestrator) Connect(ctx context.Context, peerID string) error {
	candidates := o.candidates(peerID)
	if len(candidates) == 0 {
		return transport.NewError(0, transport.ErrPeerUnknown, fmt.Sprintf("peer %s not found", peerID))
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if s, ok := o.sessions[peerID]; ok && s.state == StateConnected {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	ch := o.flights.DoChan(peerID, func() (any, error) {
		return nil, o.connect(peerID, candidates)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return transport.FromContext(0, ctx, "connect")
	}
}

func (o *Orchestrator) candidates(peerID string) []registry.PeerDevice {
	var out []registry.PeerDevice
	for _, p := range o.dir.Lookup(peerID) {
		if _, ok := o.drivers[p.Transport]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (o *Orchestrator) connect(peerID string, candidates []registry.PeerDevice) error {
	chosen := o.cfg.Policy.Select(candidates)
	k := chosen.Transport
	driver := o.drivers[k]

	o.mu.Lock()
	for {
		prev, ok := o.sessions[peerID]
		if ok && prev.state == StateConnected {
			o.mu.Unlock()
			return nil
		}
		if !ok || prev.state != StateDisconnecting {
			break
		}
		// The driver must finish tearing down the old link first.
		settled := prev.settled
		o.mu.Unlock()
		select {
		case <-settled:
		case <-o.ctx.Done():
			return ErrClosed
		}
		o.mu.Lock()
	}
	ctx, cancel := context.WithCancel(o.ctx)
	defer cancel()
	s := &session{peerID: peerID, transport: k, state: StateDisconnected, cancel: cancel}
	if prev, ok := o.sessions[peerID]; ok {
		s.gen = prev.gen + 1
	}
	gen := s.gen
	o.sessions[peerID] = s
	o.transitionLocked(s, StateConnecting, "")
	o.dir.SetConnectionStatus(k, peerID, registry.StatusConnecting)
	logger := o.logger
	o.mu.Unlock()

	backoff := NewBackoffWithConfig(o.cfg.Backoff)
	var lastErr error

	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		actx, acancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		err := transport.Guard(k, "connect", func() error {
			return driver.Connect(actx, peerID)
		})
		if err != nil && ctx.Err() == nil && actx.Err() == context.DeadlineExceeded {
			err = transport.NewError(k, transport.ErrTimeout, fmt.Sprintf("connect attempt %d timed out", attempt))
		}
		acancel()

		o.mu.Lock()
		if s.gen != gen {
			stale := err == nil && !o.wantsLinkLocked(s, k)
			o.mu.Unlock()
			if stale {
				o.reconcileDisconnect(driver, peerID)
			}
			return transport.WrapError(k, transport.ErrConnectFailure, "connect cancelled", ErrCancelled)
		}
		s.attempts = attempt
		if err == nil {
			s.connectedAt = time.Now()
			s.lastErr = nil
			o.transitionLocked(s, StateConnected, "")
			o.dir.SetConnectionStatus(k, peerID, registry.StatusConnected)
			o.mu.Unlock()
			logger.Info("peer connected", "peer_id", peerID, "transport", k.String(), "attempts", attempt)
			return nil
		}
		s.lastErr = err
		o.mu.Unlock()

		lastErr = err
		logger.Debug("connect attempt failed", "peer_id", peerID, "transport", k.String(), "attempt", attempt, "error", err)

		if !transport.Retriable(err) || attempt == o.cfg.MaxAttempts {
			break
		}
		if backoff.Wait(ctx) != nil {
			break
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if s.gen != gen {
		return transport.WrapError(k, transport.ErrConnectFailure, "connect cancelled", ErrCancelled)
	}

	terminal := lastErr
	if !errors.Is(lastErr, transport.ErrRadioUnavailable) {
		terminal = transport.WrapError(k, transport.ErrConnectFailure,
			fmt.Sprintf("connect to %s failed after %d attempts", peerID, s.attempts), lastErr)
	}
	s.lastErr = terminal
	o.transitionLocked(s, StateFailed, terminal.Error())
	o.bus.Publish(eventbus.NewError(k, peerID, terminal))
	o.dir.SetConnectionStatus(k, peerID, registry.StatusDisconnected)
	delete(o.sessions, peerID)
	logger.Warn("connect failed", "peer_id", peerID, "transport", k.String(), "error", terminal)
	return terminal
}

// wantsLinkLocked reports whether a session newer than old is connecting or
// connected to the same peer over k. Caller must hold o.mu.
func (o *Orchestrator) wantsLinkLocked(old *session, k transport.Kind) bool {
	cur, ok := o.sessions[old.peerID]
	if !ok || cur == old || cur.transport != k {
		return false
	}
	return cur.state == StateConnecting || cur.state == StateConnected
}

// reconcileDisconnect tears down a link whose connect succeeded after the
// session was abandoned.
func (o *Orchestrator) reconcileDisconnect(driver transport.Driver, peerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.AttemptTimeout)
	defer cancel()
	err := transport.Guard(driver.Kind(), "disconnect", func() error {
		return driver.Disconnect(ctx, peerID)
	})
	if err != nil {
		o.bus.Publish(eventbus.NewError(driver.Kind(), peerID, err))
	}
}

// Disconnect ends the peer's session, cancelling an in-flight connect.
// It succeeds without a driver call when there is no session.
func (o *Orchestrator) Disconnect(ctx context.Context, peerID string) error {
	o.mu.Lock()
	s, ok := o.sessions[peerID]
	if !ok || s.state == StateDisconnecting || s.state == StateDisconnected || s.state == StateFailed {
		o.mu.Unlock()
		return nil
	}
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	// Later Connect calls start their own attempt instead of joining the
	// one being abandoned.
	o.flights.Forget(peerID)
	s.settled = make(chan struct{})
	k := s.transport
	o.transitionLocked(s, StateDisconnecting, "")
	o.mu.Unlock()

	driver := o.drivers[k]
	err := transport.Guard(k, "disconnect", func() error {
		return driver.Disconnect(ctx, peerID)
	})

	o.mu.Lock()
	o.transitionLocked(s, StateDisconnected, "")
	// A Connect may already have started a fresh session for the peer.
	if cur, ok := o.sessions[peerID]; !ok || cur == s {
		delete(o.sessions, peerID)
		o.dir.SetConnectionStatus(k, peerID, registry.StatusDisconnected)
	}
	if err != nil {
		o.bus.Publish(eventbus.NewError(k, peerID, err))
	}
	close(s.settled)
	o.mu.Unlock()
	return err
}

// Send submits payload to a connected peer over its session's transport.
// Success means the driver accepted the payload.
func (o *Orchestrator) Send(ctx context.Context, peerID string, payload []byte) error {
	o.mu.Lock()
	s, ok := o.sessions[peerID]
	if !ok || s.state != StateConnected {
		var k transport.Kind
		if ok {
			k = s.transport
		}
		o.mu.Unlock()
		return transport.NewError(k, transport.ErrNotConnected, fmt.Sprintf("peer %s is not connected", peerID))
	}
	k := s.transport
	o.mu.Unlock()

	err := transport.Guard(k, "send", func() error {
		return o.drivers[k].Send(ctx, peerID, payload)
	})
	if errors.Is(err, transport.ErrNotConnected) {
		o.linkLost(k, peerID, "send: link gone")
	}
	return err
}

// Close cancels in-flight connects and stops pumping driver events.
// Drivers are not closed.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) pumpEvents(d transport.Driver) {
	defer o.wg.Done()
	events := d.ConnectionEvents()
	for {
		select {
		case <-o.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.handleEvent(ev)
		}
	}
}

func (o *Orchestrator) handleEvent(ev transport.ConnEvent) {
	switch ev.Type {
	case transport.ConnLinkLost:
		reason := "link lost"
		if ev.Err != nil {
			reason = ev.Err.Error()
		}
		o.linkLost(ev.Transport, ev.PeerID, reason)
	case transport.ConnDataReceived:
		o.bus.Publish(eventbus.NewData(ev.Transport, ev.PeerID, ev.Payload))
	}
}

func (o *Orchestrator) linkLost(k transport.Kind, peerID, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.sessions[peerID]
	if !ok || s.transport != k || s.state != StateConnected {
		return
	}
	s.gen++
	o.transitionLocked(s, StateDisconnected, reason)
	delete(o.sessions, peerID)
	o.dir.SetConnectionStatus(k, peerID, registry.StatusDisconnected)
	o.logger.Info("peer link lost", "peer_id", peerID, "transport", k.String(), "reason", reason)
}

// transitionLocked moves s to next and publishes the lifecycle event.
// Caller must hold o.mu.
func (o *Orchestrator) transitionLocked(s *session, next State, reason string) {
	prev := s.state
	s.state = next
	o.bus.Publish(eventbus.NewLifecycle(s.transport, eventbus.LifecycleEvent{
		Entity:    eventbus.EntityConnection,
		PeerID:    s.peerID,
		FromState: prev.String(),
		ToState:   next.String(),
		Reason:    reason,
	}))
}
