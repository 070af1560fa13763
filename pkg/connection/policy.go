package connection

import (
	"fmt"
	"strings"

	"github.com/hybridmesh/mesh-go/pkg/registry"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// DefaultSignalThreshold is the BLE RSSI above which SignalThreshold picks BLE.
const DefaultSignalThreshold = -60

// Policy picks the transport to connect over among the entries a peer has.
// candidates is never empty.
type Policy interface {
	Select(candidates []registry.PeerDevice) registry.PeerDevice
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func([]registry.PeerDevice) registry.PeerDevice

// Select calls f.
func (f PolicyFunc) Select(candidates []registry.PeerDevice) registry.PeerDevice {
	return f(candidates)
}

// MostRecent picks the transport with the latest sighting. Ties go to the
// lower transport kind.
var MostRecent Policy = PolicyFunc(func(candidates []registry.PeerDevice) registry.PeerDevice {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.LastSeen.After(best.LastSeen) ||
			(c.LastSeen.Equal(best.LastSeen) && c.Transport < best.Transport) {
			best = c
		}
	}
	return best
})

// Preference picks the first kind in order the peer was seen on, falling
// back to MostRecent.
func Preference(order ...transport.Kind) Policy {
	return PolicyFunc(func(candidates []registry.PeerDevice) registry.PeerDevice {
		for _, k := range order {
			for _, c := range candidates {
				if c.Transport == k {
					return c
				}
			}
		}
		return MostRecent.Select(candidates)
	})
}

// SignalThreshold picks BLE when its RSSI is above min, otherwise Wi-Fi
// Direct, otherwise the first candidate.
func SignalThreshold(min int) Policy {
	return PolicyFunc(func(candidates []registry.PeerDevice) registry.PeerDevice {
		var wifi *registry.PeerDevice
		for i, c := range candidates {
			switch c.Transport {
			case transport.KindBLE:
				if c.SignalStrength != nil && *c.SignalStrength > min {
					return c
				}
			case transport.KindWiFiDirect:
				if wifi == nil {
					wifi = &candidates[i]
				}
			}
		}
		if wifi != nil {
			return *wifi
		}
		return candidates[0]
	})
}

// ParsePolicy returns the policy for a configuration name:
// most_recent, prefer_ble, prefer_wifi_direct, or signal.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "most_recent":
		return MostRecent, nil
	case "prefer_ble":
		return Preference(transport.KindBLE, transport.KindWiFiDirect), nil
	case "prefer_wifi_direct":
		return Preference(transport.KindWiFiDirect, transport.KindBLE), nil
	case "signal":
		return SignalThreshold(DefaultSignalThreshold), nil
	}
	return nil, fmt.Errorf("unknown transport policy %q", name)
}
