package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/hybridmesh/mesh-go/pkg/log"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// ErrClosed is returned when using a closed link.
var ErrClosed = errors.New("link closed")

// ErrBadHello is returned when the peer's first frame is not a valid hello.
var ErrBadHello = errors.New("invalid hello")

// DefaultHandshakeTimeout bounds the hello exchange when ctx has no deadline.
const DefaultHandshakeTimeout = 5 * time.Second

// Hello identifies a node at link setup.
type Hello struct {
	ID   string `cbor:"1,keyasint"`
	Name string `cbor:"2,keyasint,omitempty"`
}

// Link is an established, identified connection to a peer.
type Link struct {
	id        string
	conn      net.Conn
	framer    *Framer
	transport transport.Kind
	remote    Hello
	journal   log.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// Handshake exchanges hellos over conn and returns the established link.
// The journal receives link state changes and every frame; nil disables it.
// On failure conn is closed.
func Handshake(ctx context.Context, conn net.Conn, k transport.Kind, local Hello, journal log.Logger) (*Link, error) {
	if journal == nil {
		journal = log.NoopLogger{}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultHandshakeTimeout)
	}
	_ = conn.SetDeadline(deadline)

	framer := NewFramer(conn, conn)
	remote, err := exchangeHello(framer, local)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	l := &Link{
		id:        uuid.NewString(),
		conn:      conn,
		framer:    framer,
		transport: k,
		remote:    remote,
		journal:   journal,
		done:      make(chan struct{}),
	}
	framer.SetJournal(journal, l.id, remote.ID, k)
	l.logState("", "OPEN", "")
	return l, nil
}

func exchangeHello(framer *Framer, local Hello) (Hello, error) {
	data, err := cbor.Marshal(local)
	if err != nil {
		return Hello{}, fmt.Errorf("encode hello: %w", err)
	}
	// Both sides write first; the write runs beside the read so that
	// unbuffered connections do not deadlock.
	sent := make(chan error, 1)
	go func() { sent <- framer.WriteFrame(data) }()

	frame, err := framer.ReadFrame()
	if err != nil {
		return Hello{}, fmt.Errorf("read hello: %w", err)
	}
	if err := <-sent; err != nil {
		return Hello{}, fmt.Errorf("send hello: %w", err)
	}
	var remote Hello
	if err := cbor.Unmarshal(frame, &remote); err != nil {
		return Hello{}, fmt.Errorf("%w: %v", ErrBadHello, err)
	}
	if remote.ID == "" {
		return Hello{}, fmt.Errorf("%w: empty id", ErrBadHello)
	}
	return remote, nil
}

// ID returns the link's unique id.
func (l *Link) ID() string { return l.id }

// Remote returns the peer's hello.
func (l *Link) Remote() Hello { return l.remote }

// RemoteAddr returns the peer's network address.
func (l *Link) RemoteAddr() string {
	if addr := l.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Done is closed when the link closes.
func (l *Link) Done() <-chan struct{} { return l.done }

// Send writes one payload frame.
func (l *Link) Send(payload []byte) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	return l.framer.WriteFrame(payload)
}

// Receive reads the next payload frame.
func (l *Link) Receive() ([]byte, error) {
	payload, err := l.framer.ReadFrame()
	if err != nil {
		select {
		case <-l.done:
			return nil, ErrClosed
		default:
		}
		return nil, err
	}
	return payload, nil
}

// Serve calls onData for each received payload until the link fails or is
// closed. It returns nil after Close and the read error otherwise. The link
// is closed when Serve returns.
func (l *Link) Serve(onData func([]byte)) error {
	for {
		payload, err := l.Receive()
		if err != nil {
			l.close(err.Error())
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
		onData(payload)
	}
}

// Close closes the link. It is safe to call multiple times.
func (l *Link) Close() error {
	return l.close("closed locally")
}

func (l *Link) close(reason string) error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.conn.Close()
		l.logState("OPEN", "CLOSED", reason)
	})
	return err
}

func (l *Link) logState(from, to, reason string) {
	l.journal.Log(log.Event{
		Timestamp:  time.Now(),
		LinkID:     l.id,
		PeerID:     l.remote.ID,
		Transport:  l.transport,
		RemoteAddr: l.RemoteAddr(),
		Layer:      log.LayerLink,
		Category:   log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityLink,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}
