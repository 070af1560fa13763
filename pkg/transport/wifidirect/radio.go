package wifidirect

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// Reason is a P2P action failure reason, numbered as the platform reports it.
type Reason int

// Failure reasons.
const (
	ReasonError             Reason = 0
	ReasonP2PUnsupported    Reason = 1
	ReasonBusy              Reason = 2
	ReasonNoServiceRequests Reason = 3
)

// String returns the platform constant name.
func (r Reason) String() string {
	switch r {
	case ReasonError:
		return "ERROR"
	case ReasonP2PUnsupported:
		return "P2P_UNSUPPORTED"
	case ReasonBusy:
		return "BUSY"
	case ReasonNoServiceRequests:
		return "NO_SERVICE_REQUESTS"
	default:
		return fmt.Sprintf("REASON_%d", int(r))
	}
}

// Err converts the reason into a transport error for op.
func (r Reason) Err(op string) error {
	kind := transport.ErrDriverFailure
	if r == ReasonP2PUnsupported {
		kind = transport.ErrRadioUnavailable
	}
	return transport.NewError(transport.KindWiFiDirect, kind, op+" failed: "+r.String())
}

// ActionListener receives the outcome of an asynchronous radio action.
// Exactly one of the functions is called, from any goroutine.
type ActionListener struct {
	OnSuccess func()
	OnFailure func(Reason)
}

// Device is one entry of a platform peer list.
type Device struct {
	DeviceAddress     string
	DeviceName        string
	PrimaryDeviceType string
	Status            transport.P2PStatus

	// ServiceIDs are found through service discovery, if the radio does it.
	ServiceIDs []uuid.UUID
}

// Listener receives unsolicited radio notifications.
type Listener struct {
	// OnPeersChanged is called with the full current peer list.
	OnPeersChanged func([]Device)

	// OnDiscoveryStopped is called when the platform ends peer discovery
	// on its own.
	OnDiscoveryStopped func()

	// OnIncoming is called with a stream connection a peer opened to us.
	OnIncoming func(net.Conn)
}

// Radio is the platform Wi-Fi Direct stack.
type Radio interface {
	// Enabled reports whether Wi-Fi is on and P2P is available.
	Enabled() bool

	// SetListener installs the notification listener. Called once by New.
	SetListener(Listener)

	DiscoverPeers(l ActionListener)
	StopPeerDiscovery(l ActionListener)

	// RequestPeers reports the current peer list once.
	RequestPeers(fn func([]Device))

	// Connect forms or joins a group with the device and returns a stream
	// connection to it.
	Connect(ctx context.Context, deviceAddress string) (net.Conn, error)
}

// pending resolves an action listener to one outcome, for a caller that
// may stop waiting first. onLate sees the outcome of abandoned actions.
type pending struct {
	state  atomic.Int32
	done   chan error
	onLate func(error)
}

const (
	pendingWaiting int32 = iota
	pendingResolved
	pendingAbandoned
	pendingLate
)

func newPending(onLate func(error)) *pending {
	return &pending{done: make(chan error, 1), onLate: onLate}
}

func (p *pending) listener(op string) ActionListener {
	return ActionListener{
		OnSuccess: func() { p.resolve(nil) },
		OnFailure: func(r Reason) { p.resolve(r.Err(op)) },
	}
}

func (p *pending) resolve(err error) {
	if p.state.CompareAndSwap(pendingWaiting, pendingResolved) {
		p.done <- err
		return
	}
	if p.state.CompareAndSwap(pendingAbandoned, pendingLate) && p.onLate != nil {
		p.onLate(err)
	}
}

// wait returns the action outcome. resolved is false when ctx ended first;
// err is then the context error.
func (p *pending) wait(ctx context.Context) (resolved bool, err error) {
	select {
	case err := <-p.done:
		return true, err
	case <-ctx.Done():
		if p.state.CompareAndSwap(pendingWaiting, pendingAbandoned) {
			return false, ctx.Err()
		}
		return true, <-p.done
	}
}

// ignore discards an action outcome.
var ignore = ActionListener{}

func guardAction(fn func(ActionListener), l ActionListener) error {
	return transport.Guard(transport.KindWiFiDirect, "radio action", func() error {
		fn(l)
		return nil
	})
}
