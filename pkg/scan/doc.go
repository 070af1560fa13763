// Package scan runs the per-transport discovery state machine.
//
//	Idle --Start--> Starting --driver ok--> Scanning --Stop--> Stopping --driver ack--> Idle
//	Starting --driver failure--> Idle          (ErrorEvent)
//	Scanning --async failure--> Idle           (ErrorEvent)
//
// Start while Starting or Scanning and Stop while Idle or Stopping succeed
// without calling the driver. Stop while Starting cancels the start and wins:
// the start call returns ErrSuperseded and the driver is stopped once the
// start has resolved. Start while Stopping waits for the stop to settle.
//
// A Controller also gates the driver's sighting stream: sightings are passed
// to the sink only while Starting or Scanning.
package scan
