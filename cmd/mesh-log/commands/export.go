package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hybridmesh/mesh-go/pkg/log"
)

var csvHeader = []string{"timestamp", "transport", "peer_id", "link_id", "direction", "layer", "category", "type", "detail"}

// exporter writes journal events in one output format.
type exporter interface {
	begin() error
	write(log.Event) error
	end() error
}

var exporters = map[string]func(io.Writer) exporter{
	"jsonl": func(w io.Writer) exporter { return &jsonlExporter{enc: json.NewEncoder(w)} },
	"csv":   func(w io.Writer) exporter { return &csvExporter{w: csv.NewWriter(w)} },
}

// RunExport converts the journal at path to format, writing to output or
// stdout when output is empty.
func RunExport(path, format, output string) (err error) {
	newExporter, ok := exporters[format]
	if !ok {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	w, closeOut, err := createOutput(output)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); err == nil {
			err = cerr
		}
	}()

	ex := newExporter(w)
	if err := ex.begin(); err != nil {
		return err
	}
	if err := forEach(path, log.Filter{}, ex.write); err != nil {
		return err
	}
	return ex.end()
}

type jsonlExporter struct {
	enc *json.Encoder
}

func (e *jsonlExporter) begin() error { return nil }
func (e *jsonlExporter) end() error   { return nil }

func (e *jsonlExporter) write(event log.Event) error {
	return e.enc.Encode(event)
}

type csvExporter struct {
	w *csv.Writer
}

func (e *csvExporter) begin() error {
	return e.w.Write(csvHeader)
}

func (e *csvExporter) write(event log.Event) error {
	kind := ""
	if event.Transport != 0 {
		kind = event.Transport.String()
	}
	return e.w.Write([]string{
		event.Timestamp.UTC().Format(timeFormat),
		kind,
		event.PeerID,
		event.LinkID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		typeLabel(event),
		detail(event),
	})
}

func (e *csvExporter) end() error {
	e.w.Flush()
	return e.w.Error()
}

// detail is a one-field summary of the event payload.
func detail(event log.Event) string {
	switch {
	case event.Frame != nil:
		return fmt.Sprintf("%d bytes", event.Frame.Size)
	case event.Data != nil:
		return fmt.Sprintf("%d bytes", event.Data.Size)
	case event.Discovery != nil:
		if event.Discovery.Online {
			return event.Discovery.Name
		}
		return event.Discovery.Name + " (offline)"
	case event.StateChange != nil:
		return fmt.Sprintf("%s %s->%s", event.StateChange.Entity, event.StateChange.OldState, event.StateChange.NewState)
	case event.Error != nil:
		return event.Error.Message
	default:
		return ""
	}
}
