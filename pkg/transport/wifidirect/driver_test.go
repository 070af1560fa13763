package wifidirect

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/link"
)

type fakeRadio struct {
	mu       sync.Mutex
	enabled  bool
	listener Listener
	failWith *Reason
	hold     bool
	held     []ActionListener
	discover int
	stops    int
	peers    []Device
	remote   chan net.Conn
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{enabled: true, remote: make(chan net.Conn, 4)}
}

func (r *fakeRadio) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *fakeRadio) SetListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = l
}

func (r *fakeRadio) DiscoverPeers(l ActionListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discover++
	if r.hold {
		r.held = append(r.held, l)
		return
	}
	fail := r.failWith
	go func() {
		if fail != nil {
			l.OnFailure(*fail)
			return
		}
		l.OnSuccess()
	}()
}

func (r *fakeRadio) StopPeerDiscovery(l ActionListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	if l.OnSuccess != nil {
		go l.OnSuccess()
	}
}

func (r *fakeRadio) RequestPeers(fn func([]Device)) {
	r.mu.Lock()
	peers := append([]Device(nil), r.peers...)
	r.mu.Unlock()
	fn(peers)
}

func (r *fakeRadio) Connect(_ context.Context, _ string) (net.Conn, error) {
	local, remote := net.Pipe()
	r.remote <- remote
	return local, nil
}

func (r *fakeRadio) stopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

func newTestDriver(t *testing.T) (*Driver, *fakeRadio) {
	t.Helper()
	radio := newFakeRadio()
	d := New(radio, Config{LocalID: "self", LocalName: "Self"})
	t.Cleanup(func() { _ = d.Close() })
	return d, radio
}

func TestStartDiscoveryReportsPeers(t *testing.T) {
	d, radio := newTestDriver(t)
	radio.peers = []Device{
		{DeviceAddress: "02:00:00:00:00:01", DeviceName: "Tablet", Status: transport.P2PAvailable},
		{DeviceAddress: ""},
	}

	require.NoError(t, d.StartDiscovery(context.Background()))
	require.NoError(t, d.StartDiscovery(context.Background()))
	assert.Equal(t, 1, radio.discover)

	s := <-d.Sightings()
	assert.Equal(t, transport.KindWiFiDirect, s.Transport)
	assert.Equal(t, "02:00:00:00:00:01", s.ID)
	assert.Equal(t, "Tablet", s.Name())
	assert.Equal(t, transport.P2PAvailable, s.WiFiDirect.Status)
	_, ok := s.SignalStrength()
	assert.False(t, ok)
	assert.True(t, s.Valid())
}

func TestPeersIgnoredWhileIdle(t *testing.T) {
	d, radio := newTestDriver(t)

	radio.listener.OnPeersChanged([]Device{{DeviceAddress: "02:00:00:00:00:01"}})

	select {
	case s := <-d.Sightings():
		t.Fatalf("unexpected sighting %v", s)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestStartDiscoveryFailureReasons(t *testing.T) {
	tests := []struct {
		reason Reason
		kind   error
	}{
		{ReasonBusy, transport.ErrDriverFailure},
		{ReasonError, transport.ErrDriverFailure},
		{ReasonP2PUnsupported, transport.ErrRadioUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			d, radio := newTestDriver(t)
			reason := tt.reason
			radio.failWith = &reason

			err := d.StartDiscovery(context.Background())
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), "WIFI_ERROR")
			assert.Contains(t, err.Error(), tt.reason.String())
		})
	}
}

func TestStartDiscoveryRadioOff(t *testing.T) {
	d, radio := newTestDriver(t)
	radio.enabled = false

	assert.ErrorIs(t, d.StartDiscovery(context.Background()), transport.ErrRadioUnavailable)
	assert.Equal(t, 0, radio.discover)
}

func TestLateStartConfirmationIsUndone(t *testing.T) {
	d, radio := newTestDriver(t)
	radio.hold = true

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := d.StartDiscovery(ctx)
	assert.Equal(t, transport.CodeTimeout, transport.CodeOf(err))

	radio.mu.Lock()
	held := radio.held[0]
	radio.mu.Unlock()
	held.OnSuccess()

	assert.Equal(t, 1, radio.stopCount())

	// The driver never considered itself scanning.
	require.NoError(t, d.StopDiscovery(context.Background()))
	assert.Equal(t, 1, radio.stopCount())
}

func TestDiscoveryStoppedByPlatform(t *testing.T) {
	d, radio := newTestDriver(t)
	require.NoError(t, d.StartDiscovery(context.Background()))

	radio.listener.OnDiscoveryStopped()
	err := <-d.Failures()
	assert.ErrorIs(t, err, transport.ErrDriverFailure)

	radio.listener.OnDiscoveryStopped()
	select {
	case err := <-d.Failures():
		t.Fatalf("unexpected second failure %v", err)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestStopDiscovery(t *testing.T) {
	d, radio := newTestDriver(t)
	require.NoError(t, d.StopDiscovery(context.Background()))
	assert.Equal(t, 0, radio.stopCount())

	require.NoError(t, d.StartDiscovery(context.Background()))
	require.NoError(t, d.StopDiscovery(context.Background()))
	assert.Equal(t, 1, radio.stopCount())
}

func TestConnectSendReceiveAndLoss(t *testing.T) {
	d, radio := newTestDriver(t)
	ctx := context.Background()

	assert.ErrorIs(t, d.Send(ctx, "peer-1", []byte("x")), transport.ErrNotConnected)

	remoteLink := make(chan *link.Link, 1)
	go func() {
		conn := <-radio.remote
		l, err := link.Handshake(ctx, conn, transport.KindWiFiDirect, link.Hello{ID: "peer-1"}, nil)
		if err == nil {
			remoteLink <- l
		}
	}()

	require.NoError(t, d.Connect(ctx, "peer-1"))
	remote := <-remoteLink
	assert.Equal(t, "self", remote.Remote().ID)

	received := make(chan []byte, 1)
	go func() {
		p, err := remote.Receive()
		if err == nil {
			received <- p
		}
	}()
	require.NoError(t, d.Send(ctx, "peer-1", []byte("yo")))
	assert.Equal(t, []byte("yo"), <-received)

	require.NoError(t, remote.Send([]byte("hi")))
	ev := <-d.ConnectionEvents()
	assert.Equal(t, transport.ConnDataReceived, ev.Type)
	assert.Equal(t, "peer-1", ev.PeerID)
	assert.Equal(t, []byte("hi"), ev.Payload)

	require.NoError(t, remote.Close())
	ev = <-d.ConnectionEvents()
	assert.Equal(t, transport.ConnLinkLost, ev.Type)
	assert.Error(t, ev.Err)
	assert.ErrorIs(t, d.Send(ctx, "peer-1", []byte("x")), transport.ErrNotConnected)
}

func TestDisconnectDoesNotReportLoss(t *testing.T) {
	d, radio := newTestDriver(t)
	ctx := context.Background()

	go func() {
		conn := <-radio.remote
		_, _ = link.Handshake(ctx, conn, transport.KindWiFiDirect, link.Hello{ID: "peer-1"}, nil)
	}()
	require.NoError(t, d.Connect(ctx, "peer-1"))
	require.NoError(t, d.Disconnect(ctx, "peer-1"))
	require.NoError(t, d.Disconnect(ctx, "peer-1"))

	select {
	case ev := <-d.ConnectionEvents():
		t.Fatalf("unexpected event %v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestIncomingLink(t *testing.T) {
	d, radio := newTestDriver(t)
	ctx := context.Background()

	local, remote := net.Pipe()
	radio.listener.OnIncoming(local)

	l, err := link.Handshake(ctx, remote, transport.KindWiFiDirect, link.Hello{ID: "peer-2", Name: "Laptop"}, nil)
	require.NoError(t, err)
	defer l.Close()

	received := make(chan []byte, 1)
	go func() {
		p, err := l.Receive()
		if err == nil {
			received <- p
		}
	}()

	require.Eventually(t, func() bool {
		return d.Send(ctx, "peer-2", []byte("welcome")) == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("welcome"), <-received)
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "ERROR", ReasonError.String())
	assert.Equal(t, "P2P_UNSUPPORTED", ReasonP2PUnsupported.String())
	assert.Equal(t, "BUSY", ReasonBusy.String())
	assert.Equal(t, "NO_SERVICE_REQUESTS", ReasonNoServiceRequests.String())
	assert.Equal(t, "REASON_9", Reason(9).String())
}
