package link

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/hybridmesh/mesh-go/pkg/log"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

func TestFramerRoundTrip(t *testing.T) {
	for name, payload := range map[string][]byte{
		"single byte": {0x42},
		"text":        []byte("hello"),
		"binary":      {0x00, 0xFF, 0x7F, 0x80},
		"1 KiB":       bytes.Repeat([]byte("x"), 1024),
		"at limit":    bytes.Repeat([]byte("y"), DefaultMaxFrameSize),
	} {
		t.Run(name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			f := NewFramer(buf, buf)

			if err := f.WriteFrame(payload); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}
			if buf.Len() != FrameSize(len(payload)) {
				t.Errorf("wire size = %d, want %d", buf.Len(), FrameSize(len(payload)))
			}
			got, err := f.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("got %d bytes back, want %d", len(got), len(payload))
			}
		})
	}
}

func TestFramerWriteRejects(t *testing.T) {
	f := NewFramer(nil, new(bytes.Buffer), WithMaxFrameSize(100))

	if err := f.WriteFrame(nil); !errors.Is(err, ErrFrameEmpty) {
		t.Errorf("nil payload: got %v, want ErrFrameEmpty", err)
	}
	if err := f.WriteFrame(bytes.Repeat([]byte("x"), 101)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized payload: got %v, want ErrFrameTooLarge", err)
	}
	if err := f.WriteFrame(bytes.Repeat([]byte("x"), 100)); err != nil {
		t.Errorf("payload at limit: %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestFramerWriteError(t *testing.T) {
	err := NewFramer(nil, failingWriter{}).WriteFrame([]byte("x"))
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("got %v, want wrapped io.ErrClosedPipe", err)
	}
}

// rawFrame builds a header claiming n bytes followed by body.
func rawFrame(n uint32, body []byte) *bytes.Reader {
	b := make([]byte, HeaderSize, HeaderSize+len(body))
	binary.BigEndian.PutUint32(b, n)
	return bytes.NewReader(append(b, body...))
}

func TestFramerReadErrors(t *testing.T) {
	tests := []struct {
		name string
		r    io.Reader
		want error
	}{
		{"too large", rawFrame(1000, bytes.Repeat([]byte("x"), 1000)), ErrFrameTooLarge},
		{"zero length", rawFrame(0, nil), ErrFrameEmpty},
		{"short header", bytes.NewReader([]byte{0x00, 0x01}), ErrFrameTruncated},
		{"short payload", rawFrame(100, bytes.Repeat([]byte("x"), 50)), ErrFrameTruncated},
		{"header only", rawFrame(10, nil), ErrFrameTruncated},
		{"end of stream", bytes.NewReader(nil), io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFramer(tt.r, nil, WithMaxFrameSize(100)).ReadFrame()
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFramerSequence(t *testing.T) {
	buf := new(bytes.Buffer)
	f := NewFramer(buf, buf)

	messages := []string{"first", "second", "third"}
	for _, msg := range messages {
		if err := f.WriteFrame([]byte(msg)); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for i, want := range messages {
		got, err := f.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if string(got) != want {
			t.Errorf("frame %d = %q, want %q", i, got, want)
		}
	}
	if _, err := f.ReadFrame(); err != io.EOF {
		t.Errorf("after last frame: got %v, want io.EOF", err)
	}
}

func TestFramerConcurrentWrites(t *testing.T) {
	buf := new(bytes.Buffer)
	f := NewFramer(buf, buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = f.WriteFrame(bytes.Repeat([]byte("z"), 64))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 400; i++ {
		got, err := f.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if len(got) != 64 {
			t.Fatalf("frame %d has %d bytes, frames interleaved", i, len(got))
		}
	}
}

func BenchmarkFramerWrite(b *testing.B) {
	buf := new(bytes.Buffer)
	f := NewFramer(nil, buf)
	payload := bytes.Repeat([]byte("x"), 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = f.WriteFrame(payload)
	}
}

// capturingLogger captures journal events for testing.
type capturingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *capturingLogger) Log(event log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *capturingLogger) Events() []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]log.Event(nil), l.events...)
}

func (l *capturingLogger) Frames() []log.Event {
	var out []log.Event
	for _, e := range l.Events() {
		if e.Frame != nil {
			out = append(out, e)
		}
	}
	return out
}

func TestFramerJournalsFrames(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := &capturingLogger{}

	framer := NewFramer(buf, buf)
	framer.SetJournal(logger, "link-1", "peer-1", transport.KindWiFiDirect)

	if err := framer.WriteFrame([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	if _, err := framer.ReadFrame(); err != nil {
		t.Fatal(err)
	}

	events := logger.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Direction != log.DirectionOut || events[1].Direction != log.DirectionIn {
		t.Errorf("directions: %v, %v", events[0].Direction, events[1].Direction)
	}
	for _, e := range events {
		if e.LinkID != "link-1" || e.PeerID != "peer-1" || e.Transport != transport.KindWiFiDirect {
			t.Errorf("tags: %+v", e)
		}
		if e.Layer != log.LayerLink || e.Category != log.CategoryMessage {
			t.Errorf("layer/category: %v/%v", e.Layer, e.Category)
		}
		if e.Frame.Size != FrameSize(4) {
			t.Errorf("Frame.Size = %d, want %d", e.Frame.Size, FrameSize(4))
		}
	}
}

func TestFramerJournalTruncatesLargeFrames(t *testing.T) {
	logger := &capturingLogger{}
	framer := NewFramer(nil, new(bytes.Buffer))
	framer.SetJournal(logger, "link-1", "", transport.KindBLE)

	if err := framer.WriteFrame(bytes.Repeat([]byte("z"), MaxJournalFrameData+1)); err != nil {
		t.Fatal(err)
	}

	ev := logger.Events()[0]
	if !ev.Frame.Truncated || len(ev.Frame.Data) != MaxJournalFrameData {
		t.Errorf("truncated=%v len=%d", ev.Frame.Truncated, len(ev.Frame.Data))
	}
}

func TestFramerNoJournalNoPanic(t *testing.T) {
	buf := new(bytes.Buffer)
	framer := NewFramer(buf, buf)
	if err := framer.WriteFrame([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := framer.ReadFrame(); err != nil {
		t.Fatal(err)
	}
}
