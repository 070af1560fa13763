package transport

import "sync"

// DefaultStreamBuffer is the channel buffer NewStreams uses for a size of 0.
const DefaultStreamBuffer = 64

// Streams owns the output channels of a driver. Drivers embed it to satisfy
// the Sightings, Failures and ConnectionEvents methods of Driver.
//
// Emit calls block until the value is consumed or Close is called, and are
// safe to call from radio callbacks concurrently with Close.
type Streams struct {
	sightings chan Sighting
	failures  chan error
	events    chan ConnEvent

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	inflight sync.WaitGroup
}

// NewStreams creates open streams with the given buffer size.
func NewStreams(buffer int) *Streams {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &Streams{
		sightings: make(chan Sighting, buffer),
		failures:  make(chan error, buffer),
		events:    make(chan ConnEvent, buffer),
		done:      make(chan struct{}),
	}
}

// Sightings returns the sighting stream.
func (s *Streams) Sightings() <-chan Sighting { return s.sightings }

// Failures returns the asynchronous failure stream.
func (s *Streams) Failures() <-chan error { return s.failures }

// ConnectionEvents returns the connection event stream.
func (s *Streams) ConnectionEvents() <-chan ConnEvent { return s.events }

// EmitSighting delivers a sighting. It returns false once closed.
func (s *Streams) EmitSighting(v Sighting) bool {
	if !s.enter() {
		return false
	}
	defer s.inflight.Done()
	select {
	case s.sightings <- v:
		return true
	case <-s.done:
		return false
	}
}

// EmitFailure delivers an asynchronous failure. It returns false once closed.
func (s *Streams) EmitFailure(err error) bool {
	if !s.enter() {
		return false
	}
	defer s.inflight.Done()
	select {
	case s.failures <- err:
		return true
	case <-s.done:
		return false
	}
}

// EmitEvent delivers a connection event. It returns false once closed.
func (s *Streams) EmitEvent(ev ConnEvent) bool {
	if !s.enter() {
		return false
	}
	defer s.inflight.Done()
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Streams) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.inflight.Add(1)
	return true
}

// Closed reports whether Close was called.
func (s *Streams) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close unblocks pending emits and closes all channels. Safe to call more
// than once.
func (s *Streams) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.inflight.Wait()
	close(s.sightings)
	close(s.failures)
	close(s.events)
}
