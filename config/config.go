// Package config loads the tunnel daemon's YAML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete tunnel daemon configuration.
type Config struct {
	// Mode is "listen" (wait for a peer to dial in) or "connect" (dial a
	// peer and initiate the SABM handshake).
	Mode string `yaml:"mode"`

	Listen  ListenConfig  `yaml:"listen,omitempty"`
	Peer    PeerConfig    `yaml:"peer,omitempty"`
	TUN     TUNConfig     `yaml:"tun"`
	SWTP    SWTPConfig    `yaml:"swtp"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ListenConfig configures listen mode.
type ListenConfig struct {
	Address string `yaml:"address"` // UDP address to bind, e.g. "0.0.0.0:5228"
}

// PeerConfig configures connect mode.
type PeerConfig struct {
	Address string `yaml:"address"` // UDP address to dial, e.g. "203.0.113.4:5228"
}

// TUNConfig configures the virtual network interface.
type TUNConfig struct {
	Name    string `yaml:"name"`    // interface name; empty lets the kernel choose
	IPAddr  string `yaml:"ip_addr"` // local address assigned to the interface
	Netmask string `yaml:"netmask"`
}

// SWTPConfig configures the protocol engine's window sizing and timers.
type SWTPConfig struct {
	ReceiveWindowSize int           `yaml:"receive_window_size"`
	MaxSendWindowSize int           `yaml:"max_send_window_size"`
	Timeout           time.Duration `yaml:"timeout"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	MaxRetry          int           `yaml:"max_retry"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // e.g. "127.0.0.1:9228"
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty means stdout
}

// Default returns a configuration with sensible defaults for connect mode.
func Default() *Config {
	return &Config{
		Mode: "connect",
		TUN: TUNConfig{
			Name:    "swtp0",
			IPAddr:  "10.42.0.2",
			Netmask: "255.255.255.0",
		},
		SWTP: SWTPConfig{
			ReceiveWindowSize: 8,
			Timeout:           time.Second,
			PingTimeout:       5 * time.Second,
			MaxRetry:          3,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9228",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load reads and validates a YAML configuration file, filling unset fields
// from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) setDefaults() {
	d := Default()
	if c.TUN.Name == "" {
		c.TUN.Name = d.TUN.Name
	}
	if c.SWTP.ReceiveWindowSize == 0 {
		c.SWTP.ReceiveWindowSize = d.SWTP.ReceiveWindowSize
	}
	if c.SWTP.Timeout == 0 {
		c.SWTP.Timeout = d.SWTP.Timeout
	}
	if c.SWTP.PingTimeout == 0 {
		c.SWTP.PingTimeout = d.SWTP.PingTimeout
	}
	if c.SWTP.MaxRetry == 0 {
		c.SWTP.MaxRetry = d.SWTP.MaxRetry
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = d.Metrics.Address
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case "listen":
		if c.Listen.Address == "" {
			return fmt.Errorf("listen.address is required in listen mode")
		}
	case "connect":
		if c.Peer.Address == "" {
			return fmt.Errorf("peer.address is required in connect mode")
		}
	default:
		return fmt.Errorf("invalid mode %q (must be \"listen\" or \"connect\")", c.Mode)
	}

	if c.SWTP.ReceiveWindowSize < 1 || c.SWTP.ReceiveWindowSize > 16384 {
		return fmt.Errorf("swtp.receive_window_size %d out of range [1, 16384]", c.SWTP.ReceiveWindowSize)
	}
	if c.SWTP.Timeout <= 0 {
		return fmt.Errorf("swtp.timeout must be positive")
	}
	if c.SWTP.PingTimeout <= 0 {
		return fmt.Errorf("swtp.ping_timeout must be positive")
	}
	if c.SWTP.MaxRetry < 1 {
		return fmt.Errorf("swtp.max_retry must be at least 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}

	return nil
}
