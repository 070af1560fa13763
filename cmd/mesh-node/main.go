// Command mesh-node runs a hybrid BLE / Wi-Fi Direct mesh node.
//
// The node discovers nearby peers on every enabled radio, keeps a registry
// of what it has seen and connects to peers on request.
//
// Usage:
//
//	mesh-node [flags]
//
// Flags:
//
//	-config string      Configuration file path
//	-log-level string   Log level: debug, info, warn, error (overrides the file)
//	-journal string     CBOR event journal path (overrides the file)
//	-simulate           Use scripted demo radios instead of real hardware
//	-trace              Mirror journal events into the log at debug level
//	-interactive        Enable the interactive console
//	-scan               Start scanning on every radio at startup (default true)
//
// Examples:
//
//	# Demo mode with a console
//	mesh-node -simulate -interactive
//
//	# Real radios with a journal for mesh-log
//	mesh-node -config /etc/mesh/node.yaml -journal /var/log/mesh/node.journal
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hybridmesh/mesh-go/cmd/mesh-node/interactive"
	"github.com/hybridmesh/mesh-go/pkg/config"
	"github.com/hybridmesh/mesh-go/pkg/connection"
	"github.com/hybridmesh/mesh-go/pkg/eventbus"
	"github.com/hybridmesh/mesh-go/pkg/log"
	"github.com/hybridmesh/mesh-go/pkg/mesh"
	"github.com/hybridmesh/mesh-go/pkg/registry"
	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// Flags holds the command-line overrides.
type Flags struct {
	ConfigFile  string
	LogLevel    string
	Journal     string
	Simulate    bool
	Trace       bool
	Interactive bool
	Scan        bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.Journal, "journal", "", "CBOR event journal path")
	flag.BoolVar(&flags.Simulate, "simulate", false, "Use scripted demo radios instead of real hardware")
	flag.BoolVar(&flags.Trace, "trace", false, "Mirror journal events into the log at debug level")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable the interactive console")
	flag.BoolVar(&flags.Scan, "scan", true, "Start scanning on every radio at startup")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flags)
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	logOut, closeLog := logOutput(cfg.Log)
	defer closeLog()
	logger := newLogger(cfg.Log, logOut)

	journal, closeJournal, err := openJournal(cfg.Journal)
	if err != nil {
		stdlog.Fatalf("Failed to open journal: %v", err)
	}
	defer closeJournal()

	var trace *log.SlogAdapter
	if flags.Trace {
		trace = log.NewSlogAdapter(logger)
		journal = log.Tee(journal, trace)
	}

	drivers, err := buildDrivers(cfg, journal, logger)
	if err != nil {
		stdlog.Fatalf("Failed to open radios: %v", err)
	}

	svc, err := newService(cfg, drivers, journal)
	if err != nil {
		stdlog.Fatalf("Failed to create service: %v", err)
	}
	svc.SetLogger(logger)

	logger.Info("mesh node",
		"id", cfg.Node.ID,
		"name", cfg.Node.Name,
		"simulate", cfg.Simulate,
		"transports", fmt.Sprint(svc.Transports()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		stdlog.Fatalf("Failed to start service: %v", err)
	}

	events := svc.SubscribeFunc(func(ev eventbus.Event) { logEvent(logger, ev) },
		eventbus.FamilyDiscovery, eventbus.FamilyError, eventbus.FamilyData)
	defer events.Close()

	if flags.Scan {
		if err := svc.StartScanAll(ctx); err != nil {
			logger.Warn("scan start failed", "error", err)
		}
	}

	if flags.Interactive {
		console, err := interactive.New(svc)
		if err != nil {
			stdlog.Fatalf("Failed to create console: %v", err)
		}
		if cfg.Log.File == "" {
			logger = newLogger(cfg.Log, console.Stderr())
			svc.SetLogger(logger)
			if trace != nil {
				trace.SetLogger(logger)
			}
		}
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := svc.Close(); err != nil {
		logger.Error("close service", "error", err)
	}
}

// loadConfig reads the configuration file, if any, and applies the flags.
func loadConfig(f Flags) (config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(f.ConfigFile); err != nil {
			return config.Config{}, err
		}
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.Journal != "" {
		cfg.Journal.Path = f.Journal
	}
	if f.Simulate {
		cfg.Simulate = true
	}
	if cfg.Node.ID == "" {
		cfg.Node.ID = uuid.NewString()
	}
	if cfg.Node.Name == "" {
		cfg.Node.Name = defaultNodeName()
	}
	return cfg, cfg.Validate()
}

func defaultNodeName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "mesh-node"
}

// logOutput returns stderr, or a rotating file when one is configured.
func logOutput(cfg config.LogConfig) (io.Writer, func()) {
	if cfg.File == "" {
		return os.Stderr, func() {}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return lj, func() { _ = lj.Close() }
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openJournal opens the configured event journal. A nil logger means the
// journal is disabled.
func openJournal(cfg config.JournalConfig) (log.Logger, func(), error) {
	if cfg.Path == "" {
		return nil, func() {}, nil
	}
	if cfg.MaxSizeMB > 0 {
		fl := log.NewRotatingFileLogger(cfg.Path, log.RotationConfig{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
		return fl, func() { _ = fl.Close() }, nil
	}
	fl, err := log.NewFileLogger(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return fl, func() { _ = fl.Close() }, nil
}

func newService(cfg config.Config, drivers []transport.Driver, journal log.Logger) (*mesh.Service, error) {
	policy, err := cfg.Connection.TransportPolicy()
	if err != nil {
		return nil, err
	}
	return mesh.New(drivers, mesh.Config{
		OperationTimeout: cfg.OperationTimeout.D(),
		SweepInterval:    cfg.Registry.SweepInterval.D(),
		Registry:         registry.Config{StaleAfter: cfg.Registry.StaleAfter.D()},
		Connection: connection.Config{
			MaxAttempts:    cfg.Connection.MaxAttempts,
			AttemptTimeout: cfg.Connection.AttemptTimeout.D(),
			Backoff:        cfg.Connection.Backoff.Connection(),
			Policy:         policy,
		},
		Journal: journal,
	}), nil
}

func logEvent(logger *slog.Logger, ev eventbus.Event) {
	switch {
	case ev.Discovery != nil:
		d := ev.Discovery
		attrs := []any{"transport", ev.Transport.String(), "peer_id", d.ID, "name", d.Name, "mesh", d.HasMeshService}
		if d.SignalStrength != nil {
			attrs = append(attrs, "rssi", *d.SignalStrength)
		}
		if d.IsOnline {
			logger.Debug("peer seen", attrs...)
		} else {
			logger.Info("peer gone", attrs...)
		}
	case ev.Error != nil:
		logger.Warn("transport error", "transport", ev.Transport.String(), "code", string(ev.Error.Code),
			"peer_id", ev.Error.PeerID, "error", ev.Error.Message)
	case ev.Data != nil:
		logger.Info("data received", "transport", ev.Transport.String(), "peer_id", ev.Data.PeerID,
			"bytes", len(ev.Data.Payload))
	}
}
