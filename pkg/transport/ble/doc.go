// Package ble implements the BLE transport driver.
//
// The driver adapts a callback-style Radio (scan results and scan failures
// arrive on handler functions, GATT links report data and loss the same
// way) to the channel-based transport.Driver contract. Radio backends live
// in sub-packages; bluez drives a host adapter through tinygo bluetooth and
// the sim package provides a scripted radio.
//
// Each connected peer gets one GATT link to the mesh data characteristic.
// Writes are fire-and-report: Send returns once the radio accepted the
// payload.
package ble
