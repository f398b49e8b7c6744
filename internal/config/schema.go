package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Registry RegistryConfig `yaml:"registry"`
	Scan     ScanConfig     `yaml:"scan"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds the paths of the two stores. Both may point at the
// same file.
type DatabaseConfig struct {
	Ranges  string `yaml:"ranges"`
	Devices string `yaml:"devices"`
}

// RegistryConfig locates the IEEE registry feeds
type RegistryConfig struct {
	Dir     string            `yaml:"dir"`
	BaseURL string            `yaml:"base_url,omitempty"`
	Feeds   map[string]string `yaml:"feeds,omitempty"` // class -> file, relative to Dir
	Watch   bool              `yaml:"watch"`           // re-ingest on change in serve mode
	Force   bool              `yaml:"force,omitempty"` // ingest even when the digest is unchanged
}

// ScanConfig configures the device scanner
type ScanConfig struct {
	Method       string   `yaml:"method"` // nmap or sweep
	Targets      []string `yaml:"targets,omitempty"`
	AutoTargets  bool     `yaml:"auto_targets,omitempty"` // scan local private networks when targets is empty
	Timeout      Duration `yaml:"timeout"`
	Binary       string   `yaml:"binary,omitempty"`
	Privileged   bool     `yaml:"privileged,omitempty"`
	ResolveNames *bool    `yaml:"resolve_names,omitempty"` // nil = resolve
	ProbePorts   []int    `yaml:"probe_ports,omitempty"`   // sweep only
	ARPTable     string   `yaml:"arp_table,omitempty"`     // sweep only
}

// ServerConfig holds HTTP server settings for serve mode
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Format string `yaml:"format"` // text or json
	Level  string `yaml:"level"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
