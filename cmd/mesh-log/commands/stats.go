package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hybridmesh/mesh-go/pkg/log"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// Stats holds aggregate statistics about a journal.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	EventsByTransport map[transport.Kind]int
	Peers             map[string]*PeerStats
	Errors            int
	ErrorsByCode      map[string]int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// PeerStats holds statistics for a single peer.
type PeerStats struct {
	Transport transport.Kind
	Name      string
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Sightings int
	BytesIn   int
	BytesOut  int
}

// RunStats analyzes the journal and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats := newStats()
	err := forEach(path, log.Filter{}, func(event log.Event) error {
		stats.add(event)
		return nil
	})
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		EventsByTransport: make(map[transport.Kind]int),
		Peers:             make(map[string]*PeerStats),
		ErrorsByCode:      make(map[string]int),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++
	if event.Transport != 0 {
		s.EventsByTransport[event.Transport]++
	}

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Error != nil {
		s.Errors++
		if event.Error.Code != "" {
			s.ErrorsByCode[event.Error.Code]++
		}
	}

	if event.PeerID == "" {
		return
	}

	// Peers are transport-scoped, so the key carries the radio.
	key := event.Transport.String() + "/" + event.PeerID
	peer, ok := s.Peers[key]
	if !ok {
		peer = &PeerStats{
			Transport: event.Transport,
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Peers[key] = peer
	}
	peer.Events++
	if event.Timestamp.After(peer.LastSeen) {
		peer.LastSeen = event.Timestamp
	}

	switch {
	case event.Discovery != nil:
		peer.Sightings++
		if event.Discovery.Name != "" {
			peer.Name = event.Discovery.Name
		}
	case event.Data != nil:
		peer.BytesIn += event.Data.Size
	case event.Frame != nil:
		if event.Direction == log.DirectionOut {
			peer.BytesOut += event.Frame.Size
		} else {
			peer.BytesIn += event.Frame.Size
		}
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Mesh Journal Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Transport:")
	for _, k := range []transport.Kind{transport.KindBLE, transport.KindWiFiDirect} {
		if count := stats.EventsByTransport[k]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", k.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerLink, log.LayerDriver, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryDiscovery, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Peers: %d\n", len(stats.Peers))
	if len(stats.Peers) > 0 {
		type peerInfo struct {
			key   string
			stats *PeerStats
		}
		peers := make([]peerInfo, 0, len(stats.Peers))
		for key, ps := range stats.Peers {
			peers = append(peers, peerInfo{key, ps})
		}
		sort.Slice(peers, func(i, j int) bool {
			if peers[i].stats.FirstSeen.Equal(peers[j].stats.FirstSeen) {
				return peers[i].key < peers[j].key
			}
			return peers[i].stats.FirstSeen.Before(peers[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, p := range peers {
			span := p.stats.LastSeen.Sub(p.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, span %s\n", p.key, p.stats.Events, span)
			if p.stats.Name != "" {
				fmt.Fprintf(w, "           Name: %s\n", p.stats.Name)
			}
			if p.stats.Sightings > 0 {
				fmt.Fprintf(w, "           Sightings: %d\n", p.stats.Sightings)
			}
			if p.stats.BytesIn > 0 || p.stats.BytesOut > 0 {
				fmt.Fprintf(w, "           Bytes: %d in, %d out\n", p.stats.BytesIn, p.stats.BytesOut)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
		codes := make([]string, 0, len(stats.ErrorsByCode))
		for code := range stats.ErrorsByCode {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "  %-18s %d\n", code+":", stats.ErrorsByCode[code])
		}
	}
}
