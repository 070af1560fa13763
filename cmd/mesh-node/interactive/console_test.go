package interactive

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmesh/mesh-go/pkg/mesh"
	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/ble"
	"github.com/hybridmesh/mesh-go/pkg/transport/sim"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newTestConsole(t *testing.T) (*Console, *sim.BLERadio, *syncBuffer) {
	t.Helper()
	radio := sim.NewBLERadio(sim.BLEDevice{Address: "AA:01", Name: "Alpha", RSSI: -42, Mesh: true})
	radio.Echo = true
	radio.SetBonded(ble.BondedDevice{Address: "11:22", Name: "Watch"})
	svc := mesh.New([]transport.Driver{ble.New(radio)}, mesh.Config{})
	t.Cleanup(func() { _ = svc.Close() })

	out := &syncBuffer{}
	c := newConsole(svc, out)
	t.Cleanup(c.close)
	return c, radio, out
}

func TestUnknownCommand(t *testing.T) {
	c, _, out := newTestConsole(t)

	assert.True(t, c.exec(context.Background(), "frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
}

func TestEmptyLineIsIgnored(t *testing.T) {
	c, _, out := newTestConsole(t)

	assert.True(t, c.exec(context.Background(), "   "))
	assert.Empty(t, out.String())
}

func TestQuit(t *testing.T) {
	c, _, out := newTestConsole(t)

	assert.False(t, c.exec(context.Background(), "quit"))
	assert.Contains(t, out.String(), "Exiting")
}

func TestScanListConnectSend(t *testing.T) {
	c, _, out := newTestConsole(t)
	ctx := context.Background()

	c.exec(ctx, "devices")
	assert.Contains(t, out.String(), "No known devices")

	c.exec(ctx, "scan ble")
	assert.Contains(t, out.String(), "Started BLE scan")
	require.Eventually(t, func() bool { return len(c.svc.KnownDevices()) == 1 }, 2*time.Second, 5*time.Millisecond)

	out.Reset()
	c.exec(ctx, "devices ble")
	assert.Contains(t, out.String(), "AA:01  Alpha [mesh]")
	assert.Contains(t, out.String(), "RSSI:      -42 dBm")

	out.Reset()
	c.exec(ctx, "connect AA:01")
	assert.Contains(t, out.String(), "Connected to AA:01")

	c.exec(ctx, "send AA:01 hello there")
	assert.Contains(t, out.String(), "Sent 11 bytes to AA:01")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `[DATA] AA:01 via BLE: "hello there"`)
	}, 2*time.Second, 5*time.Millisecond)

	out.Reset()
	c.exec(ctx, "sessions")
	assert.Contains(t, out.String(), "AA:01  CONNECTED over BLE")

	c.exec(ctx, "disconnect AA:01")
	assert.Contains(t, out.String(), "Disconnected from AA:01")

	c.exec(ctx, "stop")
	assert.Contains(t, out.String(), "IDLE")
}

func TestUsageMessages(t *testing.T) {
	c, _, out := newTestConsole(t)
	ctx := context.Background()

	c.exec(ctx, "connect")
	c.exec(ctx, "send AA:01")
	c.exec(ctx, "scan zigbee")

	s := out.String()
	assert.Contains(t, s, "Usage: connect <id>")
	assert.Contains(t, s, "Usage: send <id> <text>")
	assert.Contains(t, s, `unknown transport "zigbee"`)
}

func TestConnectUnknownDevice(t *testing.T) {
	c, _, out := newTestConsole(t)

	c.exec(context.Background(), "connect FF:FF")
	assert.Contains(t, out.String(), "Error:")
	assert.Contains(t, out.String(), "PEER_UNKNOWN")
}

func TestPairedAndStatus(t *testing.T) {
	c, radio, out := newTestConsole(t)
	ctx := context.Background()

	c.exec(ctx, "paired")
	assert.Contains(t, out.String(), "11:22  Watch")

	out.Reset()
	c.exec(ctx, "status")
	assert.Contains(t, out.String(), "radio on, scan IDLE")

	radio.SetEnabled(false)
	out.Reset()
	c.exec(ctx, "status")
	assert.Contains(t, out.String(), "radio off")
}

func TestWatchToggle(t *testing.T) {
	c, _, out := newTestConsole(t)
	ctx := context.Background()

	c.exec(ctx, "watch on")
	require.NotNil(t, c.watch)
	c.exec(ctx, "scan")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "BLE seen AA:01 (Alpha)")
	}, 2*time.Second, 5*time.Millisecond)

	c.exec(ctx, "watch off")
	assert.Nil(t, c.watch)
	assert.Contains(t, out.String(), "Discovery watch off")
}

func TestTopologyCommand(t *testing.T) {
	radio := sim.NewBLERadio(
		sim.BLEDevice{Address: "AA:01", Name: "Alpha", RSSI: -42, Mesh: true},
		sim.BLEDevice{Address: "AA:02", Name: "Beta", RSSI: -88, Mesh: true},
	)
	svc := mesh.New([]transport.Driver{ble.New(radio)}, mesh.Config{})
	t.Cleanup(func() { _ = svc.Close() })
	out := &syncBuffer{}
	c := newConsole(svc, out)
	t.Cleanup(c.close)
	ctx := context.Background()

	c.exec(ctx, "topology")
	assert.Contains(t, out.String(), "No known devices")

	c.exec(ctx, "scan ble")
	require.Eventually(t, func() bool { return len(svc.KnownDevices()) == 2 }, 2*time.Second, 5*time.Millisecond)

	out.Reset()
	c.exec(ctx, "topology")
	s := out.String()
	assert.Contains(t, s, "Topology (2 devices)")
	assert.Contains(t, s, "AA:01 -> AA:02")
	assert.Contains(t, s, "AA:02 -> (none)")
}
