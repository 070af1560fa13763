package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// Filter selects journal events. A zero field matches every event.
type Filter struct {
	LinkID    string
	PeerID    string
	Transport *transport.Kind
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// Matches reports whether event passes every set criterion.
func (f Filter) Matches(event Event) bool {
	switch {
	case f.LinkID != "" && event.LinkID != f.LinkID,
		f.PeerID != "" && event.PeerID != f.PeerID,
		f.Transport != nil && event.Transport != *f.Transport,
		f.Direction != nil && event.Direction != *f.Direction,
		f.Layer != nil && event.Layer != *f.Layer,
		f.Category != nil && event.Category != *f.Category,
		f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart),
		f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return true
}

// Reader streams events out of a journal. Files are read incrementally, so
// journals larger than memory are fine.
type Reader struct {
	dec     *cbor.Decoder
	closer  io.Closer
	filter  Filter
	records int
}

// NewReader opens the journal at path.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens the journal at path and yields only events
// matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewStreamReader(f, filter)
	r.closer = f
	return r, nil
}

// NewStreamReader reads journal records from src, such as a pipe. Close
// does not close src.
func NewStreamReader(src io.Reader, filter Filter) *Reader {
	return &Reader{dec: NewDecoder(src), filter: filter}
}

// Next returns the next matching event, or io.EOF after the last record.
// A record cut short by a crash or a copy in progress is reported as an
// error carrying its position.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.dec.Decode(&event)
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		if err != nil {
			return Event{}, fmt.Errorf("journal record %d: %w", r.records+1, err)
		}
		r.records++

		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Records returns how many records have been decoded, matching or not.
func (r *Reader) Records() int { return r.records }

// Close closes the journal file.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
