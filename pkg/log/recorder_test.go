package log

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/hybridmesh/mesh-go/pkg/eventbus"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

func waitEvents(t *testing.T, m *mockLogger, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := m.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %d", n, len(m.snapshot()))
	return nil
}

func TestRecorderJournalsBusEvents(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	mock := &mockLogger{}
	rec := NewRecorder(bus, mock)
	defer rec.Close()

	rssi := -60
	bus.Publish(eventbus.NewDiscovery(transport.KindBLE, eventbus.DiscoveryEvent{
		ID: "AA:01", Name: "Pixel", SignalStrength: &rssi, IsOnline: true,
	}))
	bus.Publish(eventbus.NewLifecycle(transport.KindBLE, eventbus.LifecycleEvent{
		Entity: eventbus.EntityConnection, PeerID: "AA:01", FromState: "IDLE", ToState: "CONNECTING",
	}))
	bus.Publish(eventbus.NewError(transport.KindWiFiDirect, "",
		transport.NewError(transport.KindWiFiDirect, transport.ErrDriverFailure, "busy")))
	bus.Publish(eventbus.NewData(transport.KindWiFiDirect, "02:01", []byte("hi")))

	events := waitEvents(t, mock, 4)

	if events[0].Category != CategoryDiscovery || events[0].PeerID != "AA:01" || events[0].Discovery.Name != "Pixel" {
		t.Errorf("discovery: %+v", events[0])
	}
	if events[0].Layer != LayerService || events[0].Seq != 1 {
		t.Errorf("layer/seq: %v/%d", events[0].Layer, events[0].Seq)
	}
	if events[1].StateChange == nil || events[1].StateChange.Entity != StateEntityConnection || events[1].StateChange.NewState != "CONNECTING" {
		t.Errorf("lifecycle: %+v", events[1].StateChange)
	}
	if events[2].Error == nil || events[2].Error.Code != "DRIVER_FAILURE" || events[2].Transport != transport.KindWiFiDirect {
		t.Errorf("error: %+v", events[2].Error)
	}
	if events[3].Data == nil || string(events[3].Data.Payload) != "hi" || events[3].Direction != DirectionIn {
		t.Errorf("data: %+v", events[3].Data)
	}
}

func TestFromBusEventTruncatesData(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, MaxLogDataSize+10)
	ev := FromBusEvent(eventbus.NewData(transport.KindBLE, "p", payload))

	if ev.Data.Size != len(payload) {
		t.Errorf("Size: got %d, want %d", ev.Data.Size, len(payload))
	}
	if len(ev.Data.Payload) != MaxLogDataSize || !ev.Data.Truncated {
		t.Errorf("Payload len %d truncated %v", len(ev.Data.Payload), ev.Data.Truncated)
	}
}

func TestFromBusEventScanLifecycle(t *testing.T) {
	ev := FromBusEvent(eventbus.NewLifecycle(transport.KindBLE, eventbus.LifecycleEvent{
		Entity: eventbus.EntityScan, FromState: "IDLE", ToState: "STARTING",
	}))
	if ev.StateChange.Entity != StateEntityScan {
		t.Errorf("Entity: got %v", ev.StateChange.Entity)
	}
}

func TestFromBusEventGenericError(t *testing.T) {
	ev := FromBusEvent(eventbus.NewError(transport.KindBLE, "p", errors.New("boom")))
	if ev.Error.Code != "INTERNAL" {
		t.Errorf("Code: got %q, want INTERNAL", ev.Error.Code)
	}
}

func TestRecorderNilLogger(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	rec := NewRecorder(bus, nil)
	bus.Publish(eventbus.NewData(transport.KindBLE, "p", []byte("x")))
	rec.Close()
}
