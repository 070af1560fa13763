// Package link carries payloads between two mesh nodes over a stream
// connection.
//
// Frames are length-prefixed with a 4-byte big-endian length:
//
//	+--------+------------------+
//	| length |     payload      |
//	| 4 bytes|  length bytes    |
//	+--------+------------------+
//
// A link starts with a hello exchange: each side sends one frame holding its
// CBOR-encoded Hello (node id and name) and reads the peer's. Every later
// frame is an opaque payload.
package link
