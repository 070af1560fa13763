package transport

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSightingBLE(t *testing.T) {
	s := Sighting{
		Transport: KindBLE,
		ID:        "AA:BB",
		BLE: &BLEAdvertisement{
			LocalName:    "Phone1",
			RSSI:         -40,
			ServiceUUIDs: []uuid.UUID{uuid.New(), MeshServiceUUID},
		},
	}

	assert.True(t, s.Valid())
	assert.Equal(t, "Phone1", s.Name())
	rssi, ok := s.SignalStrength()
	assert.True(t, ok)
	assert.Equal(t, -40, rssi)
	assert.True(t, s.HasMeshService())
}

func TestSightingWiFiDirect(t *testing.T) {
	s := Sighting{
		Transport: KindWiFiDirect,
		ID:        "de:ad:be:ef:00:01",
		WiFiDirect: &P2PPeer{
			DeviceName: "Pixel 8",
			Status:     P2PAvailable,
		},
	}

	assert.True(t, s.Valid())
	assert.Equal(t, "Pixel 8", s.Name())
	_, ok := s.SignalStrength()
	assert.False(t, ok, "Wi-Fi Direct carries no RSSI")
	assert.False(t, s.HasMeshService())
}

func TestSightingValid(t *testing.T) {
	tests := []struct {
		name string
		s    Sighting
		want bool
	}{
		{"empty id", Sighting{Transport: KindBLE, BLE: &BLEAdvertisement{}}, false},
		{"missing variant", Sighting{Transport: KindBLE, ID: "x"}, false},
		{"wrong variant", Sighting{Transport: KindBLE, ID: "x", WiFiDirect: &P2PPeer{}}, false},
		{"both variants", Sighting{Transport: KindWiFiDirect, ID: "x", BLE: &BLEAdvertisement{}, WiFiDirect: &P2PPeer{}}, false},
		{"unknown transport", Sighting{ID: "x", BLE: &BLEAdvertisement{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.Valid())
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, in := range []string{"ble", "BLE", "bluetooth"} {
		k, err := ParseKind(in)
		assert.NoError(t, err)
		assert.Equal(t, KindBLE, k)
	}
	for _, in := range []string{"wifi", "wifi-direct", "WIFI_DIRECT", "p2p"} {
		k, err := ParseKind(in)
		assert.NoError(t, err)
		assert.Equal(t, KindWiFiDirect, k)
	}
	_, err := ParseKind("lora")
	assert.Error(t, err)

	assert.Equal(t, "BLUETOOTH_ERROR", KindBLE.ErrorDomain())
	assert.Equal(t, "WIFI_ERROR", KindWiFiDirect.ErrorDomain())
}
