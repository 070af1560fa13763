// Package wifidirect implements the Wi-Fi Direct transport driver.
//
// The driver adapts an action-listener Radio, shaped like the platform P2P
// manager: discovery start and stop are confirmed through OnSuccess or
// OnFailure callbacks, and peer lists arrive whenever the platform reports
// that its peer set changed. Once a P2P group is formed the radio hands
// out a stream connection to the peer; the driver runs the link handshake
// over it and carries payloads as length-prefixed frames.
package wifidirect
