package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hybridmesh/mesh-go/pkg/eventbus"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// DefaultStopTimeout bounds a stop that outlives its caller's context.
const DefaultStopTimeout = 10 * time.Second

var (
	// ErrSuperseded is returned by Start when a Stop arrived before the
	// driver confirmed the start.
	ErrSuperseded = errors.New("scan start superseded by stop")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("scan controller closed")
)

// Publisher receives controller events.
type Publisher interface {
	Publish(ev eventbus.Event)
}

// Config configures a controller.
type Config struct {
	// Sink receives sightings accepted while scanning. May be nil.
	Sink func(transport.Sighting)

	// StopTimeout bounds a stop that continues after its caller gave up.
	StopTimeout time.Duration
}

// Controller drives one transport's discovery.
type Controller struct {
	driver transport.Driver
	kind   transport.Kind
	bus    Publisher
	sink   func(transport.Sighting)

	stopTimeout time.Duration

	mu          sync.Mutex
	state       State
	gen         uint64
	cancelStart context.CancelFunc
	changed     chan struct{}
	closed      bool

	// op serializes StartDiscovery and StopDiscovery calls.
	op chan struct{}

	done chan struct{}
	wg   sync.WaitGroup

	logger *slog.Logger
}

// New creates a controller for driver and starts pumping its sighting and
// failure streams.
func New(driver transport.Driver, bus Publisher, cfg Config) *Controller {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	c := &Controller{
		driver:      driver,
		kind:        driver.Kind(),
		bus:         bus,
		sink:        cfg.Sink,
		stopTimeout: cfg.StopTimeout,
		changed:     make(chan struct{}),
		op:          make(chan struct{}, 1),
		done:        make(chan struct{}),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	c.wg.Add(2)
	go c.pumpSightings()
	go c.pumpFailures()
	return c
}

// SetLogger sets the operational logger.
func (c *Controller) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	c.mu.Lock()
	c.logger = logger.With("transport", c.kind.String())
	c.mu.Unlock()
}

// Kind returns the controlled transport.
func (c *Controller) Kind() transport.Kind {
	return c.kind
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsScanning reports whether the state is Scanning.
func (c *Controller) IsScanning() bool {
	return c.State() == StateScanning
}

// Accept reports whether a sighting should be merged: true only while
// Starting or Scanning.
func (c *Controller) Accept(s transport.Sighting) bool {
	if s.Transport != c.kind {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateStarting || c.state == StateScanning
}

// Start begins discovery. It returns once the driver confirmed the start.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	for {
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		if c.state != StateStopping {
			break
		}
		changed := c.changed
		c.mu.Unlock()
		select {
		case <-changed:
		case <-ctx.Done():
			return transport.FromContext(c.kind, ctx, "start scan")
		}
		c.mu.Lock()
	}

	if c.state == StateStarting || c.state == StateScanning {
		c.mu.Unlock()
		return nil
	}

	// Idle: no driver call can be in flight.
	c.op <- struct{}{}
	c.gen++
	gen := c.gen
	startCtx, cancel := context.WithCancel(ctx)
	c.cancelStart = cancel
	c.transitionLocked(StateStarting, "")
	c.mu.Unlock()

	err := transport.Guard(c.kind, "start discovery", func() error {
		return c.driver.StartDiscovery(startCtx)
	})
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	<-c.op

	if gen != c.gen {
		c.logger.Debug("start superseded", "error", err)
		return ErrSuperseded
	}
	c.cancelStart = nil

	if err != nil {
		if ctxErr := transport.FromContext(c.kind, ctx, "start scan"); ctxErr != nil {
			err = ctxErr
		}
		c.transitionLocked(StateIdle, err.Error())
		c.bus.Publish(eventbus.NewError(c.kind, "", err))
		c.logger.Warn("scan start failed", "error", err)
		return err
	}

	c.transitionLocked(StateScanning, "")
	return nil
}

// Stop ends discovery. It returns once the driver acknowledged the stop.
// If ctx ends first the stop still completes in the background, bounded by
// the configured stop timeout.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateIdle || c.state == StateStopping {
		c.mu.Unlock()
		return nil
	}

	c.gen++
	if c.state == StateStarting && c.cancelStart != nil {
		c.cancelStart()
		c.cancelStart = nil
	}
	c.transitionLocked(StateStopping, "")
	c.mu.Unlock()

	result := make(chan error, 1)
	go func() {
		result <- c.finishStop(context.WithoutCancel(ctx))
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return transport.FromContext(c.kind, ctx, "stop scan")
	}
}

// finishStop waits for any in-flight start to resolve, then stops the driver.
func (c *Controller) finishStop(ctx context.Context) error {
	c.op <- struct{}{}
	defer func() { <-c.op }()

	ctx, cancel := context.WithTimeout(ctx, c.stopTimeout)
	defer cancel()

	err := transport.Guard(c.kind, "stop discovery", func() error {
		return c.driver.StopDiscovery(ctx)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// A radio that went away is no longer scanning.
		next := StateScanning
		if errors.Is(err, transport.ErrRadioUnavailable) {
			next = StateIdle
		}
		c.transitionLocked(next, err.Error())
		c.bus.Publish(eventbus.NewError(c.kind, "", err))
		c.logger.Warn("scan stop failed", "error", err)
		return err
	}

	c.transitionLocked(StateIdle, "")
	return nil
}

// Close stops pumping driver streams. It does not stop the driver.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
}

// transitionLocked moves to next, publishes the lifecycle event and wakes
// waiters. Caller must hold c.mu.
func (c *Controller) transitionLocked(next State, reason string) {
	prev := c.state
	c.state = next
	close(c.changed)
	c.changed = make(chan struct{})

	c.bus.Publish(eventbus.NewLifecycle(c.kind, eventbus.LifecycleEvent{
		Entity:    eventbus.EntityScan,
		FromState: prev.String(),
		ToState:   next.String(),
		Reason:    reason,
	}))
	c.logger.Debug("scan state", "from", prev.String(), "to", next.String())
}

func (c *Controller) pumpSightings() {
	defer c.wg.Done()
	sightings := c.driver.Sightings()
	for {
		select {
		case <-c.done:
			return
		case s, ok := <-sightings:
			if !ok {
				return
			}
			if !c.Accept(s) {
				continue
			}
			if c.sink != nil {
				c.sink(s)
			}
		}
	}
}

// pumpFailures turns asynchronous driver failures into error events. A
// failure while Scanning also ends the session; restarting is up to the
// caller.
func (c *Controller) pumpFailures() {
	defer c.wg.Done()
	failures := c.driver.Failures()
	for {
		select {
		case <-c.done:
			return
		case err, ok := <-failures:
			if !ok {
				return
			}
			c.handleFailure(err)
		}
	}
}

func (c *Controller) handleFailure(err error) {
	if err == nil {
		return
	}
	var terr *transport.Error
	if !errors.As(err, &terr) {
		err = transport.WrapError(c.kind, transport.ErrDriverFailure, "scan failed", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateScanning {
		c.gen++
		c.transitionLocked(StateIdle, err.Error())
	}
	c.bus.Publish(eventbus.NewError(c.kind, "", err))
	c.logger.Warn("scan failure", "error", err)
}
