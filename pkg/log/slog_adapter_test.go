package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

func logJSON(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(event)

	if buf.Len() == 0 {
		t.Fatal("no output produced")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func TestSlogAdapterLogsFrameEvent(t *testing.T) {
	entry := logJSON(t, Event{
		Timestamp: time.Now(),
		LinkID:    "link-123",
		Direction: DirectionIn,
		Layer:     LayerLink,
		Category:  CategoryMessage,
		Transport: transport.KindWiFiDirect,
		Frame:     &FrameEvent{Size: 256, Data: []byte{0x01, 0x02}},
	})

	if entry["link_id"] != "link-123" {
		t.Errorf("link_id: got %v", entry["link_id"])
	}
	if entry["direction"] != "IN" {
		t.Errorf("direction: got %v", entry["direction"])
	}
	if entry["layer"] != "LINK" {
		t.Errorf("layer: got %v", entry["layer"])
	}
	if entry["transport"] != "WIFI_DIRECT" {
		t.Errorf("transport: got %v", entry["transport"])
	}
	if entry["frame_size"] != float64(256) {
		t.Errorf("frame_size: got %v", entry["frame_size"])
	}
	if entry["msg"] != "journal" {
		t.Errorf("msg: got %v", entry["msg"])
	}
}

func TestSlogAdapterLogsDiscoveryEvent(t *testing.T) {
	rssi := -45
	entry := logJSON(t, Event{
		Layer:     LayerService,
		Category:  CategoryDiscovery,
		Transport: transport.KindBLE,
		PeerID:    "AA:BB:CC:DD:EE:01",
		Discovery: &DiscoveryData{Name: "Samsung Galaxy (HybridMesh)", SignalStrength: &rssi, Online: true, HasMeshService: true},
	})

	if entry["peer_id"] != "AA:BB:CC:DD:EE:01" {
		t.Errorf("peer_id: got %v", entry["peer_id"])
	}
	if entry["rssi"] != float64(-45) {
		t.Errorf("rssi: got %v", entry["rssi"])
	}
	if entry["online"] != true || entry["mesh"] != true {
		t.Errorf("flags: online=%v mesh=%v", entry["online"], entry["mesh"])
	}
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	entry := logJSON(t, Event{
		Category: CategoryState,
		Seq:      7,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityScan,
			OldState: "STARTING",
			NewState: "SCANNING",
		},
	})

	if entry["entity"] != "SCAN" || entry["new_state"] != "SCANNING" || entry["old_state"] != "STARTING" {
		t.Errorf("state attrs: %v", entry)
	}
	if entry["seq"] != float64(7) {
		t.Errorf("seq: got %v", entry["seq"])
	}
	if _, ok := entry["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}

func TestSlogAdapterLogsError(t *testing.T) {
	entry := logJSON(t, Event{
		Category: CategoryError,
		Error: &ErrorEventData{
			Layer:   LayerDriver,
			Message: "scan failed",
			Code:    "DRIVER_FAILURE",
		},
	})

	if entry["error_code"] != "DRIVER_FAILURE" {
		t.Errorf("error_code: got %v", entry["error_code"])
	}
	if entry["error_layer"] != "DRIVER" {
		t.Errorf("error_layer: got %v", entry["error_layer"])
	}
	if _, ok := entry["error_context"]; ok {
		t.Error("error_context should be omitted when empty")
	}
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(handler)).Log(Event{Category: CategoryMessage})

	if buf.Len() != 0 {
		t.Errorf("expected no output at info level, got %q", buf.String())
	}
}

func TestSlogAdapterSetLogger(t *testing.T) {
	var first, second bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	a := NewSlogAdapter(slog.New(slog.NewTextHandler(&first, opts)))

	a.Log(Event{PeerID: "AA:01"})
	a.SetLogger(slog.New(slog.NewTextHandler(&second, opts)))
	a.Log(Event{PeerID: "AA:02"})
	a.SetLogger(nil)
	a.Log(Event{PeerID: "AA:03"})

	if !bytes.Contains(first.Bytes(), []byte("peer_id=AA:01")) || bytes.Contains(first.Bytes(), []byte("AA:02")) {
		t.Errorf("first logger got %q", first.String())
	}
	if !bytes.Contains(second.Bytes(), []byte("peer_id=AA:02")) || bytes.Contains(second.Bytes(), []byte("AA:03")) {
		t.Errorf("second logger got %q", second.String())
	}
}
