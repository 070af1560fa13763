package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/ble"
	"github.com/hybridmesh/mesh-go/pkg/transport/wifidirect"
)

func nextEvent(t *testing.T, ch <-chan transport.ConnEvent) transport.ConnEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection event")
		return transport.ConnEvent{}
	}
}

func TestBLEScanReplaysDevices(t *testing.T) {
	radio := NewBLERadio(
		BLEDevice{Address: "AA:01", Name: "Mesh", RSSI: -40, Mesh: true},
		BLEDevice{Address: "AA:02", Name: "Other", RSSI: -80, Delay: 10 * time.Millisecond},
	)
	d := ble.New(radio)
	defer d.Close()

	require.NoError(t, d.StartDiscovery(context.Background()))

	got := map[string]transport.Sighting{}
	for len(got) < 2 {
		select {
		case s := <-d.Sightings():
			got[s.ID] = s
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d sightings", len(got))
		}
	}
	assert.True(t, got["AA:01"].HasMeshService())
	assert.False(t, got["AA:02"].HasMeshService())
	assert.Equal(t, "Other", got["AA:02"].Name())
}

func TestBLEEchoAndDrop(t *testing.T) {
	radio := NewBLERadio(BLEDevice{Address: "AA:01"})
	radio.Echo = true
	d := ble.New(radio)
	defer d.Close()
	ctx := context.Background()

	require.NoError(t, d.Connect(ctx, "AA:01"))
	require.NoError(t, d.Send(ctx, "AA:01", []byte("ping")))

	ev := nextEvent(t, d.ConnectionEvents())
	assert.Equal(t, transport.ConnDataReceived, ev.Type)
	assert.Equal(t, []byte("ping"), ev.Payload)

	radio.DropLink("AA:01")
	ev = nextEvent(t, d.ConnectionEvents())
	assert.Equal(t, transport.ConnLinkLost, ev.Type)
}

func TestBLEConnectUnknownDevice(t *testing.T) {
	d := ble.New(NewBLERadio())
	defer d.Close()

	err := d.Connect(context.Background(), "FF:FF")
	assert.ErrorIs(t, err, transport.ErrConnectFailure)
}

func TestBLERadioOffEndsScan(t *testing.T) {
	radio := NewBLERadio()
	d := ble.New(radio)
	defer d.Close()
	require.NoError(t, d.StartDiscovery(context.Background()))

	radio.SetEnabled(false)

	select {
	case err := <-d.Failures():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no failure after radio off")
	}
	assert.False(t, d.IsRadioEnabled())
	assert.ErrorIs(t, d.StartDiscovery(context.Background()), transport.ErrRadioUnavailable)
}

func TestBLEFailScan(t *testing.T) {
	radio := NewBLERadio()
	d := ble.New(radio)
	defer d.Close()
	require.NoError(t, d.StartDiscovery(context.Background()))

	radio.FailScan(ble.ScanFailedOutOfHardwareResources)

	err := <-d.Failures()
	assert.Contains(t, err.Error(), "SCAN_FAILED_OUT_OF_HARDWARE_RESOURCES")
}

func TestBLEBonded(t *testing.T) {
	radio := NewBLERadio()
	radio.SetBonded(ble.BondedDevice{Address: "11:22", Name: "Watch"})
	d := ble.New(radio)
	defer d.Close()

	devices, err := d.PairedDevices()
	require.NoError(t, err)
	assert.Equal(t, []ble.BondedDevice{{Address: "11:22", Name: "Watch"}}, devices)
}

func TestWiFiDiscoveryAndEcho(t *testing.T) {
	radio := NewWiFiRadio(P2PDevice{Address: "02:01", Name: "Tablet", Mesh: true, Status: transport.P2PAvailable})
	radio.Echo = true
	d := wifidirect.New(radio, wifidirect.Config{LocalID: "self"})
	defer d.Close()
	ctx := context.Background()

	require.NoError(t, d.StartDiscovery(ctx))
	select {
	case s := <-d.Sightings():
		assert.Equal(t, "02:01", s.ID)
		assert.True(t, s.HasMeshService())
	case <-time.After(2 * time.Second):
		t.Fatal("no sighting")
	}

	require.NoError(t, d.Connect(ctx, "02:01"))
	require.NoError(t, d.Send(ctx, "02:01", []byte("hello")))

	ev := nextEvent(t, d.ConnectionEvents())
	assert.Equal(t, transport.ConnDataReceived, ev.Type)
	assert.Equal(t, []byte("hello"), ev.Payload)

	radio.DropLink("02:01")
	ev = nextEvent(t, d.ConnectionEvents())
	assert.Equal(t, transport.ConnLinkLost, ev.Type)
}

func TestWiFiDiscoveryFailure(t *testing.T) {
	radio := NewWiFiRadio()
	radio.FailDiscovery(wifidirect.ReasonBusy)
	d := wifidirect.New(radio, wifidirect.Config{LocalID: "self"})
	defer d.Close()

	err := d.StartDiscovery(context.Background())
	assert.ErrorIs(t, err, transport.ErrDriverFailure)
	assert.Contains(t, err.Error(), "BUSY")

	require.NoError(t, d.StartDiscovery(context.Background()))
}

func TestWiFiEndDiscovery(t *testing.T) {
	radio := NewWiFiRadio()
	d := wifidirect.New(radio, wifidirect.Config{LocalID: "self"})
	defer d.Close()
	require.NoError(t, d.StartDiscovery(context.Background()))

	radio.EndDiscovery()

	select {
	case err := <-d.Failures():
		assert.ErrorIs(t, err, transport.ErrDriverFailure)
	case <-time.After(2 * time.Second):
		t.Fatal("no failure after discovery ended")
	}
}

func TestDemoRadios(t *testing.T) {
	assert.Len(t, DemoBLEDevices, 2)
	assert.Len(t, DemoP2PDevices, 2)
	assert.True(t, NewDemoBLE().Echo)
	assert.Equal(t, DemoRefresh, NewDemoWiFi().Refresh)
}
