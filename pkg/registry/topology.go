package registry

import (
	"sort"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// DefaultReachThresholds are the signal strengths, in dBm, a peer must
// exceed on a transport to count as able to reach other peers on it.
var DefaultReachThresholds = map[transport.Kind]int{
	transport.KindBLE:        -70,
	transport.KindWiFiDirect: -80,
}

// Topology maps each peer id to the sorted ids of the peers it can reach.
// Every current peer has an entry, possibly empty.
type Topology map[string][]string

// Topology estimates reachability between the current peers using
// DefaultReachThresholds.
func (r *Registry) Topology() Topology {
	return BuildTopology(r.Peers(), DefaultReachThresholds)
}

// BuildTopology estimates reachability from this node's view of peers. A
// peer reaches another when both were seen on a transport and the first
// one's signal on it is above that transport's threshold. A peer with no
// reported signal, or on a transport without a threshold, passes the check.
func BuildTopology(peers []PeerDevice, thresholds map[transport.Kind]int) Topology {
	byKind := make(map[transport.Kind][]PeerDevice)
	ids := make(map[string]struct{})
	for _, p := range peers {
		byKind[p.Transport] = append(byKind[p.Transport], p)
		ids[p.ID] = struct{}{}
	}

	reach := make(map[string]map[string]struct{}, len(ids))
	for id := range ids {
		reach[id] = make(map[string]struct{})
	}
	for k, group := range byKind {
		for _, from := range group {
			if !strongEnough(from, thresholds, k) {
				continue
			}
			for _, to := range group {
				if to.ID != from.ID {
					reach[from.ID][to.ID] = struct{}{}
				}
			}
		}
	}

	topo := make(Topology, len(reach))
	for id, set := range reach {
		out := make([]string, 0, len(set))
		for to := range set {
			out = append(out, to)
		}
		sort.Strings(out)
		topo[id] = out
	}
	return topo
}

func strongEnough(p PeerDevice, thresholds map[transport.Kind]int, k transport.Kind) bool {
	limit, ok := thresholds[k]
	if !ok || p.SignalStrength == nil {
		return true
	}
	return *p.SignalStrength > limit
}

// CanReach reports whether from can reach to in t.
func (t Topology) CanReach(from, to string) bool {
	for _, id := range t[from] {
		if id == to {
			return true
		}
	}
	return false
}
