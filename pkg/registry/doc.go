// Package registry is the canonical directory of peers seen by any transport.
//
// Entries are keyed by (transport, id). The same physical device seen on BLE
// and on Wi-Fi Direct yields two entries; no cross-transport reconciliation
// is attempted. Lookup(id) returns every transport's entry for an id so that
// callers can pick a transport.
//
// # Merge rules
//
// On each sighting of a known peer:
//   - the name is replaced when the sighting carries one
//   - the signal strength is replaced when the sighting carries one
//   - the mesh-service flag is OR-ed and never reverts to false
//   - lastSeen moves forward only
//
// # Staleness
//
// Reads through Peers and ByTransport exclude peers whose lastSeen is older
// than the configured staleness window (lazy exclusion). EvictStale removes
// such peers for good and is driven by a periodic sweep in the mesh service.
// Peers with an active connection are never stale.
package registry
