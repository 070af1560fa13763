// Package sim provides scripted BLE and Wi-Fi Direct radios.
//
// The radios replay a fixed device set: each device is reported after its
// delay once a scan starts and then again on every refresh interval until
// the scan stops. Links are loopbacks; with Echo set every payload sent to
// a device comes back as received data. Tests and the demo mode of the node
// binary use them in place of real radio stacks.
package sim
