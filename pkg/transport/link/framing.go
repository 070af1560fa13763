package link

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hybridmesh/mesh-go/pkg/log"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

const (
	// HeaderSize is the length prefix in front of every frame.
	HeaderSize = 4

	// DefaultMaxFrameSize bounds a payload unless WithMaxFrameSize says
	// otherwise.
	DefaultMaxFrameSize = 64 * 1024

	// MaxJournalFrameData is how much of a payload a frame event keeps.
	MaxJournalFrameData = 4096
)

var (
	ErrFrameEmpty     = errors.New("empty frame")
	ErrFrameTooLarge  = errors.New("frame too large")
	ErrFrameTruncated = errors.New("frame truncated")
)

// FrameSize returns the size on the wire of a frame carrying n payload bytes.
func FrameSize(n int) int { return HeaderSize + n }

// FramerOption configures a Framer.
type FramerOption func(*Framer)

// WithMaxFrameSize sets the largest payload accepted in either direction.
func WithMaxFrameSize(n uint32) FramerOption {
	return func(f *Framer) { f.max = n }
}

// Framer reads and writes length-prefixed frames. Writes may come from any
// goroutine; reads must come from one.
type Framer struct {
	r   io.Reader
	w   io.Writer
	max uint32

	wmu sync.Mutex
	hdr [HeaderSize]byte

	journal   log.Logger
	linkID    string
	peerID    string
	transport transport.Kind
}

// NewFramer returns a framer reading from r and writing to w. Either may be
// nil when the framer is only used in one direction.
func NewFramer(r io.Reader, w io.Writer, opts ...FramerOption) *Framer {
	f := &Framer{r: r, w: w, max: DefaultMaxFrameSize}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetJournal tags every frame with the link, peer and transport and records
// it to logger. A nil logger disables recording. Call before first use.
func (f *Framer) SetJournal(logger log.Logger, linkID, peerID string, k transport.Kind) {
	f.journal = logger
	f.linkID = linkID
	f.peerID = peerID
	f.transport = k
}

func (f *Framer) checkSize(n uint32) error {
	switch {
	case n == 0:
		return ErrFrameEmpty
	case n > f.max:
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, f.max)
	}
	return nil
}

// WriteFrame sends payload as one frame using a single Write.
func (f *Framer) WriteFrame(payload []byte) error {
	if err := f.checkSize(uint32(len(payload))); err != nil {
		return err
	}
	frame := make([]byte, FrameSize(len(payload)))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[HeaderSize:], payload)

	f.wmu.Lock()
	_, err := f.w.Write(frame)
	f.wmu.Unlock()
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	f.record(payload, log.DirectionOut)
	return nil
}

// ReadFrame returns the next payload. A clean end of stream between frames
// is io.EOF; one inside a frame is ErrFrameTruncated.
func (f *Framer) ReadFrame() ([]byte, error) {
	if err := f.readFull(f.hdr[:], true); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(f.hdr[:])
	if err := f.checkSize(n); err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if err := f.readFull(payload, false); err != nil {
		return nil, err
	}
	f.record(payload, log.DirectionIn)
	return payload, nil
}

func (f *Framer) readFull(buf []byte, atBoundary bool) error {
	_, err := io.ReadFull(f.r, buf)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && atBoundary:
		return io.EOF
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrFrameTruncated
	}
	return fmt.Errorf("read frame: %w", err)
}

func (f *Framer) record(payload []byte, dir log.Direction) {
	if f.journal == nil {
		return
	}
	ev := &log.FrameEvent{Size: FrameSize(len(payload)), Data: payload}
	if len(payload) > MaxJournalFrameData {
		ev.Data = payload[:MaxJournalFrameData]
		ev.Truncated = true
	}
	f.journal.Log(log.Event{
		Timestamp: time.Now(),
		LinkID:    f.linkID,
		PeerID:    f.peerID,
		Transport: f.transport,
		Direction: dir,
		Layer:     log.LayerLink,
		Category:  log.CategoryMessage,
		Frame:     ev,
	})
}
