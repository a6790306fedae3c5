// Package config parses the optional socksd YAML configuration file.
//
// The file mirrors the command-line flags; flags set on the command line win
// over file values. Example:
//
//	listen: ":1080"
//	dns_server: "8.8.8.8:53"
//	dial_timeout: "10s"
//	tcp_keepalive: "45:45:3"
//	debug_listen: "127.0.0.1:6060"
//	verbose: true
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the socksd configuration file.
type Config struct {
	// Listen is the SOCKS5 listen address.
	Listen string `yaml:"listen"`

	// DNSServer is an explicit "host:port" DNS server for domain
	// destinations. Empty means the system resolver.
	DNSServer string `yaml:"dns_server"`

	// DialTimeout is the outbound connect timeout as a Go duration
	// string. Empty or "0" disables it.
	DialTimeout string `yaml:"dial_timeout"`

	// TCPKeepAlive is "on", "off", or "keepidle:keepintvl:keepcnt".
	TCPKeepAlive string `yaml:"tcp_keepalive"`

	// DebugListen exposes /debug/pprof when non-empty.
	DebugListen string `yaml:"debug_listen"`

	// Verbose enables per-connection debug logging.
	Verbose bool `yaml:"verbose"`
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses a YAML config from raw bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills in default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = ":1080"
	}
	if c.TCPKeepAlive == "" {
		c.TCPKeepAlive = "45:45:3"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
}

// ParseDialTimeout returns the dial timeout as a duration.
func (c *Config) ParseDialTimeout() (time.Duration, error) {
	if c.DialTimeout == "" || c.DialTimeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.DialTimeout)
	if err != nil {
		return 0, fmt.Errorf("dial_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("dial_timeout: must be >= 0")
	}
	return d, nil
}
