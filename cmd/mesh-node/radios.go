package main

import (
	"errors"
	"log/slog"

	"github.com/hybridmesh/mesh-go/pkg/config"
	"github.com/hybridmesh/mesh-go/pkg/log"
	"github.com/hybridmesh/mesh-go/pkg/transport"
	"github.com/hybridmesh/mesh-go/pkg/transport/ble"
	"github.com/hybridmesh/mesh-go/pkg/transport/sim"
	"github.com/hybridmesh/mesh-go/pkg/transport/wifidirect"
	"github.com/hybridmesh/mesh-go/pkg/transport/wifidirect/dnssd"
)

var errNoRadio = errors.New("no radio could be opened")

// buildDrivers opens one driver per enabled transport. A radio that fails
// to open is skipped with a warning; at least one must succeed.
func buildDrivers(cfg config.Config, journal log.Logger, logger *slog.Logger) ([]transport.Driver, error) {
	var drivers []transport.Driver

	if cfg.Transports.BLE.Enabled {
		radio, err := bleRadio(cfg)
		if err != nil {
			logger.Warn("BLE radio unavailable", "adapter", cfg.Transports.BLE.Adapter, "error", err)
		} else {
			d := ble.New(radio)
			d.SetLogger(logger)
			drivers = append(drivers, d)
		}
	}

	if cfg.Transports.WiFiDirect.Enabled {
		radio, err := wifiRadio(cfg, logger)
		if err != nil {
			logger.Warn("Wi-Fi Direct radio unavailable", "interface", cfg.Transports.WiFiDirect.Interface, "error", err)
		} else {
			d := wifidirect.New(radio, wifidirect.Config{
				LocalID:   cfg.Node.ID,
				LocalName: cfg.Node.Name,
				Journal:   journal,
			})
			d.SetLogger(logger)
			drivers = append(drivers, d)
		}
	}

	if len(drivers) == 0 {
		return nil, errNoRadio
	}
	return drivers, nil
}

func bleRadio(cfg config.Config) (ble.Radio, error) {
	if cfg.Simulate {
		return sim.NewDemoBLE(), nil
	}
	return openBluetooth(cfg.Transports.BLE.Adapter)
}

func wifiRadio(cfg config.Config, logger *slog.Logger) (wifidirect.Radio, error) {
	if cfg.Simulate {
		return sim.NewDemoWiFi(), nil
	}
	wd := cfg.Transports.WiFiDirect
	radio, err := dnssd.Listen(dnssd.Config{
		Interface: wd.Interface,
		Port:      wd.Port,
		ID:        cfg.Node.ID,
		Name:      cfg.Node.Name,
		TTL:       wd.TTL.D(),
	})
	if err != nil {
		return nil, err
	}
	radio.SetLogger(logger.With("component", "dnssd"))
	logger.Info("Wi-Fi Direct link listener", "addr", radio.Addr().String())
	return radio, nil
}
