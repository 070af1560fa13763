package sim

import (
	"time"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// DemoBLEDevices are the demo BLE peers.
var DemoBLEDevices = []BLEDevice{
	{Address: "AA:BB:CC:DD:EE:10", Name: "Mesh Node Alpha", RSSI: -45, Mesh: true, Delay: 2 * time.Second},
	{Address: "AA:BB:CC:DD:EE:11", Name: "Phone Beta", RSSI: -60, Delay: 4 * time.Second},
}

// DemoP2PDevices are the demo Wi-Fi Direct peers.
var DemoP2PDevices = []P2PDevice{
	{Address: "AA:BB:CC:DD:EE:20", Name: "Mesh Router Gamma", Mesh: true, Status: transport.P2PAvailable, Delay: 3 * time.Second},
	{Address: "AA:BB:CC:DD:EE:21", Name: "Tablet Delta", Status: transport.P2PAvailable, Delay: 6 * time.Second},
}

// DemoRefresh is how often demo radios re-report their peers.
const DemoRefresh = 10 * time.Second

// NewDemoBLE returns a BLE radio replaying DemoBLEDevices with echo links.
func NewDemoBLE() *BLERadio {
	r := NewBLERadio(DemoBLEDevices...)
	r.Refresh = DemoRefresh
	r.Echo = true
	return r
}

// NewDemoWiFi returns a Wi-Fi Direct radio replaying DemoP2PDevices with
// echo links.
func NewDemoWiFi() *WiFiRadio {
	r := NewWiFiRadio(DemoP2PDevices...)
	r.Refresh = DemoRefresh
	r.Echo = true
	return r
}
