package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hybridmesh/mesh-go/pkg/connection"
	"github.com/hybridmesh/mesh-go/pkg/registry"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Default values.
const (
	DefaultWiFiDirectPort   = 7340
	DefaultSweepInterval    = 30 * time.Second
	DefaultOperationTimeout = 15 * time.Second
)

// Config is the node configuration.
type Config struct {
	Node       NodeConfig       `yaml:"node"`
	Transports TransportsConfig `yaml:"transports"`
	Registry   RegistryConfig   `yaml:"registry"`
	Connection ConnectionConfig `yaml:"connection"`

	// OperationTimeout bounds every facade operation.
	OperationTimeout Duration `yaml:"operation_timeout"`

	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`

	// Simulate replaces the radios with scripted demo radios.
	Simulate bool `yaml:"simulate"`
}

// NodeConfig identifies this node. An empty ID is generated at startup.
type NodeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// TransportsConfig selects and configures the radios.
type TransportsConfig struct {
	BLE        BLEConfig        `yaml:"ble"`
	WiFiDirect WiFiDirectConfig `yaml:"wifi_direct"`
}

// BLEConfig configures the BLE radio.
type BLEConfig struct {
	Enabled bool `yaml:"enabled"`

	// Adapter is the host adapter name, such as hci0. Empty uses the default.
	Adapter string `yaml:"adapter"`
}

// WiFiDirectConfig configures the Wi-Fi Direct radio.
type WiFiDirectConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interface is the P2P group interface. Empty uses all interfaces.
	Interface string `yaml:"interface"`

	// Port is the link listen port; -1 picks a free port.
	Port int `yaml:"port"`

	// TTL is the DNS-SD record TTL. Zero uses the library default.
	TTL Duration `yaml:"ttl"`
}

// RegistryConfig configures peer staleness.
type RegistryConfig struct {
	// StaleAfter is the staleness window. Negative disables staleness.
	StaleAfter Duration `yaml:"stale_after"`

	// SweepInterval is how often stale peers are evicted.
	SweepInterval Duration `yaml:"sweep_interval"`
}

// ConnectionConfig configures connects.
type ConnectionConfig struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	AttemptTimeout Duration `yaml:"attempt_timeout"`

	// Policy is most_recent, prefer_ble, prefer_wifi_direct or signal.
	Policy string `yaml:"policy"`

	// SignalThreshold is the BLE RSSI the signal policy requires.
	SignalThreshold int `yaml:"signal_threshold"`

	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig configures the delay between connect attempts.
type BackoffConfig struct {
	Initial    Duration `yaml:"initial"`
	Max        Duration `yaml:"max"`
	Multiplier float64  `yaml:"multiplier"`
	Jitter     float64  `yaml:"jitter"`
}

// LogConfig configures operational logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`

	// File is the log file; empty logs to stderr.
	File string `yaml:"file"`

	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// JournalConfig configures the CBOR event journal.
type JournalConfig struct {
	// Path is the journal file; empty disables the journal.
	Path string `yaml:"path"`

	// MaxSizeMB rotates the journal at this size; zero never rotates.
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Transports: TransportsConfig{
			BLE:        BLEConfig{Enabled: true},
			WiFiDirect: WiFiDirectConfig{Enabled: true, Port: DefaultWiFiDirectPort},
		},
		Registry: RegistryConfig{
			StaleAfter:    Duration(registry.DefaultStaleAfter),
			SweepInterval: Duration(DefaultSweepInterval),
		},
		Connection: ConnectionConfig{
			MaxAttempts:     connection.DefaultMaxAttempts,
			AttemptTimeout:  Duration(connection.DefaultAttemptTimeout),
			Policy:          "most_recent",
			SignalThreshold: connection.DefaultSignalThreshold,
			Backoff: BackoffConfig{
				Initial:    Duration(connection.InitialBackoff),
				Max:        Duration(connection.MaxBackoff),
				Multiplier: connection.BackoffMultiplier,
				Jitter:     connection.JitterFactor,
			},
		},
		OperationTimeout: Duration(DefaultOperationTimeout),
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads, parses and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if !c.Transports.BLE.Enabled && !c.Transports.WiFiDirect.Enabled {
		bad("no transport enabled")
	}
	if p := c.Transports.WiFiDirect.Port; p < -1 || p > 65535 {
		bad("transports.wifi_direct.port %d out of range", p)
	}
	if c.Registry.SweepInterval <= 0 {
		bad("registry.sweep_interval must be positive")
	}
	if c.Connection.MaxAttempts < 1 {
		bad("connection.max_attempts must be at least 1")
	}
	if c.Connection.AttemptTimeout <= 0 {
		bad("connection.attempt_timeout must be positive")
	}
	if _, err := connection.ParsePolicy(c.Connection.Policy); err != nil {
		bad("connection.policy: %v", err)
	}
	b := c.Connection.Backoff
	if b.Initial <= 0 || b.Max < b.Initial {
		bad("connection.backoff: need 0 < initial <= max")
	}
	if b.Multiplier < 1 {
		bad("connection.backoff.multiplier must be at least 1")
	}
	if b.Jitter < 0 || b.Jitter > 1 {
		bad("connection.backoff.jitter must be within [0, 1]")
	}
	if c.OperationTimeout <= 0 {
		bad("operation_timeout must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		bad("log.format %q is not text or json", c.Log.Format)
	}
	return errors.Join(errs...)
}

// TransportPolicy returns the configured transport selection policy.
func (c ConnectionConfig) TransportPolicy() (connection.Policy, error) {
	if strings.EqualFold(strings.TrimSpace(c.Policy), "signal") {
		return connection.SignalThreshold(c.SignalThreshold), nil
	}
	return connection.ParsePolicy(c.Policy)
}

// Connection converts to the connection package form.
func (b BackoffConfig) Connection() connection.BackoffConfig {
	return connection.BackoffConfig{
		Initial:    b.Initial.D(),
		Max:        b.Max.D(),
		Multiplier: b.Multiplier,
		Jitter:     b.Jitter,
	}
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
