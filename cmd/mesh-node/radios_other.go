//go:build !linux

package main

import (
	"fmt"

	"github.com/hybridmesh/mesh-go/pkg/transport/ble"
	"github.com/hybridmesh/mesh-go/pkg/transport/ble/bluez"
)

// openBluetooth opens the default adapter; named adapters are a BlueZ feature.
func openBluetooth(adapter string) (ble.Radio, error) {
	if adapter != "" {
		return nil, fmt.Errorf("adapter %q: named adapters require Linux", adapter)
	}
	return bluez.Open(nil)
}
