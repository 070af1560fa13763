package registry

import (
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// DefaultStaleAfter is the default staleness window.
const DefaultStaleAfter = 60 * time.Second

// ErrInvalidSighting is returned by Upsert for malformed sightings.
var ErrInvalidSighting = errors.New("invalid sighting")

// Config configures a registry.
type Config struct {
	// StaleAfter is the staleness window used by lazy reads.
	// Zero means DefaultStaleAfter; negative disables staleness.
	StaleAfter time.Duration

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Registry holds the known peers. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]map[transport.Kind]*PeerDevice

	staleAfter time.Duration
	clock      func() time.Time
	logger     *slog.Logger
}

// New creates a registry with default configuration.
func New() *Registry {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a registry with custom configuration.
func NewWithConfig(cfg Config) *Registry {
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Registry{
		peers:      make(map[string]map[transport.Kind]*PeerDevice),
		staleAfter: cfg.StaleAfter,
		clock:      cfg.Clock,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the operational logger.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// StaleAfter returns the configured staleness window.
func (r *Registry) StaleAfter() time.Duration {
	return r.staleAfter
}

// Upsert merges a sighting into the registry and returns the resulting entry.
// created is true when the peer was not known on that transport.
func (r *Registry) Upsert(s transport.Sighting) (peer PeerDevice, created bool, err error) {
	if !s.Valid() {
		return PeerDevice{}, false, ErrInvalidSighting
	}
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	byKind, ok := r.peers[s.ID]
	if !ok {
		byKind = make(map[transport.Kind]*PeerDevice, 1)
		r.peers[s.ID] = byKind
	}

	p, ok := byKind[s.Transport]
	if !ok {
		p = &PeerDevice{
			Transport: s.Transport,
			ID:        s.ID,
			Name:      transport.DefaultDeviceName,
			Address:   s.ID,
			FirstSeen: now,
			LastSeen:  now,
		}
		byKind[s.Transport] = p
		created = true
	}

	merge(p, s, now)
	return r.view(p, now), created, nil
}

func merge(p *PeerDevice, s transport.Sighting, now time.Time) {
	if name := s.Name(); name != "" {
		p.Name = name
	}
	if rssi, ok := s.SignalStrength(); ok {
		p.SignalStrength = &rssi
	}
	if s.HasMeshService() {
		p.HasMeshService = true
	}
	if s.WiFiDirect != nil {
		p.P2PStatus = s.WiFiDirect.Status
	}
	if now.After(p.LastSeen) {
		p.LastSeen = now
	}
}

// Get returns the entry for (k, id), stale or not.
func (r *Registry) Get(k transport.Kind, id string) (PeerDevice, bool) {
	now := r.clock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.peers[id][k]
	if !ok {
		return PeerDevice{}, false
	}
	return r.view(p, now), true
}

// Lookup returns every current (non-stale) entry for id across transports,
// in transport order.
func (r *Registry) Lookup(id string) []PeerDevice {
	now := r.clock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []PeerDevice
	for _, p := range r.peers[id] {
		if p.Stale(now, r.staleAfter) {
			continue
		}
		out = append(out, r.view(p, now))
	}
	sortPeers(out)
	return out
}

// Peers returns all current peers, excluding stale ones.
func (r *Registry) Peers() []PeerDevice {
	return r.filter(func(PeerDevice) bool { return true }, true)
}

// ByTransport returns the current peers seen on k.
func (r *Registry) ByTransport(k transport.Kind) []PeerDevice {
	return r.filter(func(p PeerDevice) bool { return p.Transport == k }, true)
}

// All returns every entry including stale ones.
func (r *Registry) All() []PeerDevice {
	return r.filter(func(PeerDevice) bool { return true }, false)
}

func (r *Registry) filter(keep func(PeerDevice) bool, current bool) []PeerDevice {
	now := r.clock()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PeerDevice, 0, len(r.peers))
	for _, byKind := range r.peers {
		for _, p := range byKind {
			if current && p.Stale(now, r.staleAfter) {
				continue
			}
			if keep(*p) {
				out = append(out, r.view(p, now))
			}
		}
	}
	sortPeers(out)
	return out
}

// view snapshots p with Online evaluated at now. Caller must hold r.mu.
func (r *Registry) view(p *PeerDevice, now time.Time) PeerDevice {
	c := p.clone()
	c.Online = !p.Stale(now, r.staleAfter)
	return c
}

// EvictStale removes every entry that went unseen for longer than ttl at now
// and returns the removed entries.
func (r *Registry) EvictStale(now time.Time, ttl time.Duration) []PeerDevice {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []PeerDevice
	for id, byKind := range r.peers {
		for k, p := range byKind {
			if !p.Stale(now, ttl) {
				continue
			}
			removed = append(removed, p.clone())
			delete(byKind, k)
		}
		if len(byKind) == 0 {
			delete(r.peers, id)
		}
	}
	sortPeers(removed)

	if len(removed) > 0 {
		r.logger.Debug("evicted stale peers", "count", len(removed), "ttl", ttl)
	}
	return removed
}

// SetConnectionStatus records a connection status change. Returns false when
// the entry does not exist.
func (r *Registry) SetConnectionStatus(k transport.Kind, id string, status ConnectionStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[id][k]
	if !ok {
		return false
	}
	p.Status = status
	return true
}

// Len returns the number of entries including stale ones.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, byKind := range r.peers {
		n += len(byKind)
	}
	return n
}

// Clear removes all entries.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers = make(map[string]map[transport.Kind]*PeerDevice)
}

func sortPeers(peers []PeerDevice) {
	sort.Slice(peers, func(i, j int) bool {
		if peers[i].ID != peers[j].ID {
			return peers[i].ID < peers[j].ID
		}
		return peers[i].Transport < peers[j].Transport
	})
}
