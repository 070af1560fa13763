// Package connection manages per-peer connection sessions across transports.
//
// This package handles:
//   - Transport selection among the transports a peer was seen on
//   - Bounded connect retries with exponential backoff and jitter
//   - Single-flight connects: concurrent Connect calls for one peer share
//     one driver attempt sequence
//   - Disconnects that cancel an in-flight connect
//
// # Session States
//
//	Disconnected --Connect--> Connecting --ok--> Connected --Disconnect--> Disconnecting --> Disconnected
//	Connecting --attempts exhausted--> Failed
//	Connected --link lost--> Disconnected
//
// Failed and Disconnected sessions are removed; a later Connect starts a
// fresh session.
//
// # Retry Strategy
//
// Each attempt is bounded by the attempt timeout. Between attempts the
// orchestrator waits:
//
//	actual_delay = base_delay + random(0, base_delay * jitter)
//
// starting at 500ms and doubling up to 8s. RADIO_UNAVAILABLE is never
// retried.
package connection
