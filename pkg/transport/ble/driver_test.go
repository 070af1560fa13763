package ble

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

type fakeLink struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	writeErr error
}

func (l *fakeLink) Write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return l.writeErr
	}
	l.written = append(l.written, p)
	return nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

type fakeRadio struct {
	mu         sync.Mutex
	enabled    bool
	handler    ScanHandler
	starts     int
	stops      int
	startErr   error
	connectErr error
	bonded     []BondedDevice
	links      map[string]*fakeLink
	handlers   map[string]LinkHandler
	panicScan  bool
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{
		enabled:  true,
		links:    make(map[string]*fakeLink),
		handlers: make(map[string]LinkHandler),
	}
}

func (r *fakeRadio) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *fakeRadio) StartScan(h ScanHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicScan {
		panic("binder died")
	}
	r.starts++
	if r.startErr != nil {
		return r.startErr
	}
	r.handler = h
	return nil
}

func (r *fakeRadio) StopScan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func (r *fakeRadio) BondedDevices() ([]BondedDevice, error) {
	return r.bonded, nil
}

func (r *fakeRadio) Connect(_ context.Context, address string, h LinkHandler) (GATTLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connectErr != nil {
		return nil, r.connectErr
	}
	l := &fakeLink{}
	r.links[address] = l
	r.handlers[address] = h
	return l, nil
}

func (r *fakeRadio) scanHandler() ScanHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

func (r *fakeRadio) linkHandler(address string) LinkHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[address]
}

func newTestDriver(t *testing.T) (*Driver, *fakeRadio) {
	t.Helper()
	radio := newFakeRadio()
	d := New(radio)
	t.Cleanup(func() { _ = d.Close() })
	return d, radio
}

func TestStartDiscoveryIdempotent(t *testing.T) {
	d, radio := newTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.StartDiscovery(ctx))
	require.NoError(t, d.StartDiscovery(ctx))
	assert.Equal(t, 1, radio.starts)

	require.NoError(t, d.StopDiscovery(ctx))
	require.NoError(t, d.StopDiscovery(ctx))
	assert.Equal(t, 1, radio.stops)
}

func TestStartDiscoveryRadioOff(t *testing.T) {
	d, radio := newTestDriver(t)
	radio.enabled = false

	err := d.StartDiscovery(context.Background())
	assert.ErrorIs(t, err, transport.ErrRadioUnavailable)
	assert.Contains(t, err.Error(), "BLUETOOTH_ERROR")
	assert.False(t, d.IsRadioEnabled())
	assert.Equal(t, 0, radio.starts)
}

func TestStartDiscoveryFailureWrapped(t *testing.T) {
	d, radio := newTestDriver(t)
	radio.startErr = errors.New("scanner busy")

	err := d.StartDiscovery(context.Background())
	assert.ErrorIs(t, err, transport.ErrDriverFailure)

	// Not scanning, so a retry reaches the radio again.
	radio.startErr = nil
	require.NoError(t, d.StartDiscovery(context.Background()))
	assert.Equal(t, 2, radio.starts)
}

func TestStartDiscoveryPanicBecomesInternal(t *testing.T) {
	d, radio := newTestDriver(t)
	radio.panicScan = true

	err := d.StartDiscovery(context.Background())
	assert.Equal(t, transport.CodeInternal, transport.CodeOf(err))
}

func TestScanResultsBecomeSightings(t *testing.T) {
	d, radio := newTestDriver(t)
	require.NoError(t, d.StartDiscovery(context.Background()))

	radio.scanHandler().OnResult(ScanResult{
		Address:      "AA:BB",
		Name:         "Phone1",
		RSSI:         -40,
		ServiceUUIDs: []uuid.UUID{transport.MeshServiceUUID},
	})

	s := <-d.Sightings()
	assert.Equal(t, transport.KindBLE, s.Transport)
	assert.Equal(t, "AA:BB", s.ID)
	assert.Equal(t, "Phone1", s.Name())
	rssi, ok := s.SignalStrength()
	assert.True(t, ok)
	assert.Equal(t, -40, rssi)
	assert.True(t, s.HasMeshService())
	assert.False(t, s.Timestamp.IsZero())
	assert.True(t, s.Valid())
}

func TestResultsAfterStopDropped(t *testing.T) {
	d, radio := newTestDriver(t)
	require.NoError(t, d.StartDiscovery(context.Background()))
	h := radio.scanHandler()
	require.NoError(t, d.StopDiscovery(context.Background()))

	h.OnResult(ScanResult{Address: "AA:BB"})

	select {
	case s := <-d.Sightings():
		t.Fatalf("unexpected sighting %v", s)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestScanFailedEndsScan(t *testing.T) {
	d, radio := newTestDriver(t)
	require.NoError(t, d.StartDiscovery(context.Background()))

	radio.scanHandler().OnFailed(ScanFailedScanningTooFrequently)

	err := <-d.Failures()
	assert.ErrorIs(t, err, transport.ErrDriverFailure)
	assert.Contains(t, err.Error(), "SCAN_FAILED_SCANNING_TOO_FREQUENTLY")

	// A second report for the same scan is not a new failure.
	radio.scanHandler().OnFailed(ScanFailedInternalError)
	select {
	case err := <-d.Failures():
		t.Fatalf("unexpected failure %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, d.StartDiscovery(context.Background()))
	assert.Equal(t, 2, radio.starts)
}

func TestScanFailedAlreadyStartedIgnored(t *testing.T) {
	d, radio := newTestDriver(t)
	require.NoError(t, d.StartDiscovery(context.Background()))

	radio.scanHandler().OnFailed(ScanFailedAlreadyStarted)

	select {
	case err := <-d.Failures():
		t.Fatalf("unexpected failure %v", err)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestFailureCodes(t *testing.T) {
	tests := []struct {
		code FailureCode
		name string
		kind error
	}{
		{ScanFailedAlreadyStarted, "SCAN_FAILED_ALREADY_STARTED", transport.ErrDriverFailure},
		{ScanFailedApplicationRegistrationFailed, "SCAN_FAILED_APPLICATION_REGISTRATION_FAILED", transport.ErrDriverFailure},
		{ScanFailedInternalError, "SCAN_FAILED_INTERNAL_ERROR", transport.ErrDriverFailure},
		{ScanFailedFeatureUnsupported, "SCAN_FAILED_FEATURE_UNSUPPORTED", transport.ErrRadioUnavailable},
		{ScanFailedOutOfHardwareResources, "SCAN_FAILED_OUT_OF_HARDWARE_RESOURCES", transport.ErrDriverFailure},
		{ScanFailedScanningTooFrequently, "SCAN_FAILED_SCANNING_TOO_FREQUENTLY", transport.ErrDriverFailure},
		{FailureCode(42), "SCAN_FAILED_42", transport.ErrDriverFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.code.String())
			assert.ErrorIs(t, tt.code.Err(), tt.kind)
		})
	}
}

func TestPairedDevices(t *testing.T) {
	d, radio := newTestDriver(t)
	radio.bonded = []BondedDevice{{Address: "11:22", Name: "Watch"}, {Address: "33:44"}}

	devices, err := d.PairedDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "Watch", devices[0].Name)
	assert.Equal(t, transport.DefaultDeviceName, devices[1].Name)

	radio.enabled = false
	devices, err = d.PairedDevices()
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestConnectSendDisconnect(t *testing.T) {
	d, radio := newTestDriver(t)
	ctx := context.Background()

	err := d.Send(ctx, "AA:BB", []byte("x"))
	assert.ErrorIs(t, err, transport.ErrNotConnected)

	require.NoError(t, d.Connect(ctx, "AA:BB"))
	require.NoError(t, d.Connect(ctx, "AA:BB"), "second connect reuses the link")
	require.NoError(t, d.Send(ctx, "AA:BB", []byte("hello")))

	link := radio.links["AA:BB"]
	assert.Equal(t, [][]byte{[]byte("hello")}, link.written)

	require.NoError(t, d.Disconnect(ctx, "AA:BB"))
	assert.True(t, link.closed)
	require.NoError(t, d.Disconnect(ctx, "AA:BB"))
	assert.ErrorIs(t, d.Send(ctx, "AA:BB", nil), transport.ErrNotConnected)
}

func TestConnectFailure(t *testing.T) {
	d, radio := newTestDriver(t)
	radio.connectErr = errors.New("gatt status 133")

	err := d.Connect(context.Background(), "AA:BB")
	assert.ErrorIs(t, err, transport.ErrConnectFailure)
	assert.True(t, transport.Retriable(err))
}

func TestSendFailureWrapped(t *testing.T) {
	d, radio := newTestDriver(t)
	require.NoError(t, d.Connect(context.Background(), "AA:BB"))
	radio.links["AA:BB"].writeErr = errors.New("write rejected")

	err := d.Send(context.Background(), "AA:BB", []byte("x"))
	assert.ErrorIs(t, err, transport.ErrDriverFailure)
}

func TestLinkCallbacks(t *testing.T) {
	d, radio := newTestDriver(t)
	require.NoError(t, d.Connect(context.Background(), "AA:BB"))
	h := radio.linkHandler("AA:BB")

	h.OnData([]byte("ping"))
	ev := <-d.ConnectionEvents()
	assert.Equal(t, transport.ConnDataReceived, ev.Type)
	assert.Equal(t, []byte("ping"), ev.Payload)

	h.OnLost(errors.New("supervision timeout"))
	ev = <-d.ConnectionEvents()
	assert.Equal(t, transport.ConnLinkLost, ev.Type)
	assert.Equal(t, "AA:BB", ev.PeerID)

	assert.ErrorIs(t, d.Send(context.Background(), "AA:BB", nil), transport.ErrNotConnected)
}

func TestStaleLinkLossIgnored(t *testing.T) {
	d, radio := newTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.Connect(ctx, "AA:BB"))
	old := radio.linkHandler("AA:BB")
	require.NoError(t, d.Disconnect(ctx, "AA:BB"))
	require.NoError(t, d.Connect(ctx, "AA:BB"))

	old.OnLost(errors.New("late callback"))

	require.NoError(t, d.Send(ctx, "AA:BB", []byte("still up")))
}

func TestCloseClosesStreams(t *testing.T) {
	radio := newFakeRadio()
	d := New(radio)
	require.NoError(t, d.StartDiscovery(context.Background()))
	require.NoError(t, d.Connect(context.Background(), "AA:BB"))

	require.NoError(t, d.Close())
	assert.Equal(t, 1, radio.stops)
	assert.True(t, radio.links["AA:BB"].closed)

	_, ok := <-d.Sightings()
	assert.False(t, ok)
	assert.ErrorIs(t, d.StartDiscovery(context.Background()), transport.ErrRadioUnavailable)
}
