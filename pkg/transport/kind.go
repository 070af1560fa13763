package transport

import (
	"fmt"
	"strings"
)

// Kind identifies a radio technology.
type Kind uint8

const (
	// KindBLE is Bluetooth Low Energy.
	KindBLE Kind = iota + 1

	// KindWiFiDirect is Wi-Fi Direct (Wi-Fi P2P).
	KindWiFiDirect
)

// Kinds lists all supported transports in their default preference order.
var Kinds = []Kind{KindBLE, KindWiFiDirect}

// String returns the transport name.
func (k Kind) String() string {
	switch k {
	case KindBLE:
		return "BLE"
	case KindWiFiDirect:
		return "WIFI_DIRECT"
	default:
		return "UNKNOWN"
	}
}

// ErrorDomain returns the host-facing error domain for the transport.
func (k Kind) ErrorDomain() string {
	switch k {
	case KindBLE:
		return "BLUETOOTH_ERROR"
	case KindWiFiDirect:
		return "WIFI_ERROR"
	default:
		return "TRANSPORT_ERROR"
	}
}

// ParseKind parses a transport name as accepted on the command line and in
// configuration files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ble", "bluetooth", "bt":
		return KindBLE, nil
	case "wifi", "wifi-direct", "wifi_direct", "wifidirect", "p2p":
		return KindWiFiDirect, nil
	default:
		return 0, fmt.Errorf("unknown transport %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
