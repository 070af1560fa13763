package transport

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStreamsDeliver(t *testing.T) {
	s := NewStreams(1)

	if !s.EmitSighting(Sighting{Transport: KindBLE, ID: "a"}) {
		t.Fatal("EmitSighting returned false on open streams")
	}
	if got := <-s.Sightings(); got.ID != "a" {
		t.Errorf("sighting id = %q, want %q", got.ID, "a")
	}

	s.EmitFailure(errors.New("boom"))
	if err := <-s.Failures(); err == nil || err.Error() != "boom" {
		t.Errorf("failure = %v", err)
	}

	s.EmitEvent(ConnEvent{Type: ConnLinkLost, PeerID: "p"})
	if ev := <-s.ConnectionEvents(); ev.PeerID != "p" {
		t.Errorf("event peer = %q", ev.PeerID)
	}
}

func TestStreamsCloseUnblocksEmitters(t *testing.T) {
	s := NewStreams(1)
	s.EmitSighting(Sighting{ID: "fill"})

	var wg sync.WaitGroup
	results := make(chan bool, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.EmitSighting(Sighting{ID: "blocked"})
		}()
	}

	time.Sleep(10 * time.Millisecond)
	s.Close()
	wg.Wait()
	close(results)

	for ok := range results {
		if ok {
			t.Error("emit blocked on a full buffer reported delivery after close")
		}
	}

	// Buffered value is still readable, then the channel is closed.
	if v, ok := <-s.Sightings(); !ok || v.ID != "fill" {
		t.Errorf("buffered sighting = %v, %v", v, ok)
	}
	if _, ok := <-s.Sightings(); ok {
		t.Error("sightings channel not closed")
	}
	if _, ok := <-s.Failures(); ok {
		t.Error("failures channel not closed")
	}
}

func TestStreamsEmitAfterClose(t *testing.T) {
	s := NewStreams(0)
	s.Close()
	s.Close()

	if !s.Closed() {
		t.Error("Closed() = false after Close")
	}
	if s.EmitEvent(ConnEvent{}) {
		t.Error("EmitEvent after Close returned true")
	}
}
