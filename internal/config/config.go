package config

import (
	"fmt"

	"github.com/muurk/obsws/internal/protocol"
)

// Config represents the entire server configuration file.
type Config struct {
	Version int           `yaml:"version"`
	Server  *ServerConfig `yaml:"server"`
}

// ServerConfig holds the settings consumed by the WebSocket server and the
// host binary. Command-line flags override individual fields at startup.
type ServerConfig struct {
	Port         int    `yaml:"port"`               // WebSocket listen port
	Password     string `yaml:"password,omitempty"` // Authentication password (file is chmod 0600)
	AuthRequired bool   `yaml:"auth_required"`      // Require the Identify challenge-response
	Debug        bool   `yaml:"debug"`              // Debug logging
	Metrics      bool   `yaml:"metrics"`            // Serve Prometheus metrics on /metrics
	Discovery    bool   `yaml:"discovery"`          // Advertise the server via mDNS
}

// DefaultPort is the port clients try first.
const DefaultPort = 4455

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Version: 1,
		Server: &ServerConfig{
			Port:         DefaultPort,
			AuthRequired: false,
			Debug:        false,
			Metrics:      false,
			Discovery:    true,
		},
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}
	if c.Server == nil {
		return fmt.Errorf("config has no server section")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.AuthRequired && c.Server.Password == "" {
		return fmt.Errorf("auth_required is set but no password is configured")
	}
	return nil
}

// LogLevel maps the debug flag onto a logging level name.
func (c *Config) LogLevel() string {
	if c.Server != nil && c.Server.Debug {
		return "debug"
	}
	return "info"
}

// TXTRecords returns the mDNS TXT records describing this server to
// discovering clients.
func (c *Config) TXTRecords() []string {
	auth := "false"
	if c.Server != nil && c.Server.AuthRequired {
		auth = "true"
	}
	return []string{
		"txtvers=1",
		"version=" + protocol.Version,
		"auth=" + auth,
	}
}
