// Package transport defines the radio-agnostic driver contract that every
// short-range transport (BLE, Wi-Fi Direct) implements.
//
// A Driver wraps exactly one radio technology. It produces two independent
// asynchronous streams:
//
//   - Sightings: raw discovery results while scanning.
//   - ConnectionEvents: link-level changes (link lost, data received).
//
// Keeping the streams apart avoids ordering ambiguity between discovery and
// connection traffic. Commands (StartDiscovery, Connect, Send, ...) are bound
// by a context and report their outcome as a typed *Error.
//
// # Sightings
//
// Both radios report peers in structurally different shapes. A Sighting is a
// tagged variant: common fields plus exactly one of BLE or WiFiDirect set,
// selected by Transport.
//
//	┌──────────────┐   ScanResult    ┌──────────┐
//	│  BLE radio   │ ──────────────▶ │          │
//	└──────────────┘                 │ Sighting │ ──▶ registry
//	┌──────────────┐   peer list     │          │
//	│ Wi-Fi Direct │ ──────────────▶ │          │
//	└──────────────┘                 └──────────┘
//
// # Errors
//
// Every platform failure is converted at the driver boundary into an *Error
// carrying the transport, a machine code and a human-readable message. Raw
// platform errors never escape a driver.
package transport
