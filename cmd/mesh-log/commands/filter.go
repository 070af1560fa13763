package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/hybridmesh/mesh-go/pkg/log"
)

// FilterOptions holds the raw flag values shared by the view and filter
// commands.
type FilterOptions struct {
	Output    string
	LinkID    string
	PeerID    string
	Transport string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// optional parses s with parse and stores the result in *dst. Empty flags
// leave dst nil.
func optional[T any](dst **T, name, s string, parse func(string) (T, error)) error {
	if s == "" {
		return nil
	}
	v, err := parse(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = &v
	return nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Filter converts the options to a journal filter.
func (o FilterOptions) Filter() (log.Filter, error) {
	f := log.Filter{LinkID: o.LinkID, PeerID: o.PeerID}
	for _, err := range []error{
		optional(&f.Transport, "transport", o.Transport, ParseTransportFlag),
		optional(&f.TimeStart, "time-start", o.TimeStart, parseTime),
		optional(&f.TimeEnd, "time-end", o.TimeEnd, parseTime),
		optional(&f.Layer, "layer", o.Layer, ParseLayerFlag),
		optional(&f.Direction, "direction", o.Direction, ParseDirectionFlag),
		optional(&f.Category, "category", o.Category, ParseCategoryFlag),
	} {
		if err != nil {
			return log.Filter{}, err
		}
	}
	return f, nil
}

// RunFilter copies the events matching opts into a new journal at
// opts.Output and reports the count on w.
func RunFilter(path string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.Filter()
	if err != nil {
		return err
	}

	out, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("create output journal: %w", err)
	}

	err = forEach(path, filter, func(event log.Event) error {
		out.Log(event)
		return out.Err()
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", out.Written(), opts.Output)
	return nil
}
