// Package commands implements the mesh-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/hybridmesh/mesh-go/pkg/log"
)

const timeFormat = "2006-01-02T15:04:05.000000Z"

// RunView writes every event matching filter to output.
func RunView(path string, filter log.Filter, output io.Writer) error {
	return forEach(path, filter, func(event log.Event) error {
		formatEvent(output, event)
		return nil
	})
}

// formatEvent prints a header line, the indented payload details and a
// blank separator line.
func formatEvent(w io.Writer, event log.Event) {
	kind := "-"
	if event.Transport != 0 {
		kind = event.Transport.String()
	}
	header := fmt.Sprintf("%s [%s] %-3s %s %s",
		event.Timestamp.UTC().Format(timeFormat), kind,
		event.Direction, event.Layer, typeLabel(event))
	if event.PeerID != "" {
		header += " peer=" + event.PeerID
	}
	if event.LinkID != "" {
		header += " link=" + shortenID(event.LinkID)
	}

	fmt.Fprintln(w, header)
	for _, line := range detailLines(event) {
		fmt.Fprintln(w, "  "+line)
	}
	fmt.Fprintln(w)
}

func typeLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Discovery != nil:
		return "Discovery"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	case event.Data != nil:
		return "Data"
	}
	return "Unknown"
}

func shortenID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func detailLines(event log.Event) []string {
	switch {
	case event.Frame != nil:
		return payloadLines(event.Frame.Size, event.Frame.Data, event.Frame.Truncated)
	case event.Data != nil:
		return payloadLines(event.Data.Size, event.Data.Payload, event.Data.Truncated)
	case event.Discovery != nil:
		return discoveryLines(event.Discovery)
	case event.StateChange != nil:
		return stateLines(event.StateChange)
	case event.Error != nil:
		return errorLines(event.Error)
	}
	return nil
}

func payloadLines(size int, b []byte, truncated bool) []string {
	lines := []string{fmt.Sprintf("Size: %d bytes", size)}
	if len(b) == 0 {
		return lines
	}
	data := "Data: " + hex.EncodeToString(b)
	if truncated {
		data += " (truncated)"
	}
	return append(lines, data)
}

func discoveryLines(d *log.DiscoveryData) []string {
	status := "offline"
	if d.Online {
		status = "online"
	}
	lines := []string{fmt.Sprintf("Name: %s (%s)", d.Name, status)}
	if d.SignalStrength != nil {
		lines = append(lines, fmt.Sprintf("RSSI: %d dBm", *d.SignalStrength))
	}
	if d.HasMeshService {
		lines = append(lines, "Mesh service: yes")
	}
	return lines
}

func stateLines(sc *log.StateChangeEvent) []string {
	transition := "-> " + sc.NewState
	if sc.OldState != "" {
		transition = sc.OldState + " " + transition
	}
	lines := []string{"Entity: " + sc.Entity.String(), transition}
	if sc.Reason != "" {
		lines = append(lines, "Reason: "+sc.Reason)
	}
	return lines
}

func errorLines(e *log.ErrorEventData) []string {
	lines := []string{"Layer: " + e.Layer.String(), "Message: " + e.Message}
	if e.Code != "" {
		lines = append(lines, "Code: "+e.Code)
	}
	if e.Context != "" {
		lines = append(lines, "Context: "+e.Context)
	}
	return lines
}
