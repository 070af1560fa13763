//go:build linux

package main

import (
	"tinygo.org/x/bluetooth"

	"github.com/hybridmesh/mesh-go/pkg/transport/ble"
	"github.com/hybridmesh/mesh-go/pkg/transport/ble/bluez"
)

// openBluetooth opens the named BlueZ adapter, or the default one.
func openBluetooth(adapter string) (ble.Radio, error) {
	if adapter == "" {
		return bluez.Open(nil)
	}
	return bluez.Open(bluetooth.NewAdapter(adapter))
}
