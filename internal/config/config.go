// Package config loads the macwatch configuration file.
//
// Config file locations (priority order):
//  1. $MACWATCH_CONFIG
//  2. ./macwatch.yaml
//  3. $XDG_CONFIG_HOME/macwatch/config.yaml
//  4. ~/.config/macwatch/config.yaml
//  5. /etc/macwatch/config.yaml
//
// Missing files are not an error: every field has a default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"macwatch/internal/domain"
	"macwatch/internal/registry"
)

const (
	DefaultDatabasePath = "./macwatch.db"
	DefaultRegistryDir  = "./registry"
	DefaultServerAddr   = "127.0.0.1:8780"
	DefaultScanMethod   = "nmap"
	DefaultScanTimeout  = 5 * time.Minute
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Ranges == "" {
		c.Database.Ranges = DefaultDatabasePath
	}
	if c.Database.Devices == "" {
		c.Database.Devices = c.Database.Ranges
	}
	if c.Registry.Dir == "" {
		c.Registry.Dir = DefaultRegistryDir
	}
	if c.Registry.BaseURL == "" {
		c.Registry.BaseURL = registry.DefaultBaseURL
	}
	if c.Scan.Method == "" {
		c.Scan.Method = DefaultScanMethod
	}
	if c.Scan.Timeout <= 0 {
		c.Scan.Timeout = Duration(DefaultScanTimeout)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = Duration(60 * time.Second)
	}
	// WriteTimeout stays zero: SSE streams stay open indefinitely
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks values that have no sensible fallback
func (c *Config) Validate() error {
	switch c.Scan.Method {
	case "nmap", "sweep":
	default:
		return fmt.Errorf("invalid scan method %q: want nmap or sweep", c.Scan.Method)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging format %q: want text or json", c.Logging.Format)
	}
	for key := range c.Registry.Feeds {
		if _, err := domain.ParseAssignmentClass(key); err != nil {
			return fmt.Errorf("invalid registry feed %q: %w", key, err)
		}
	}
	return nil
}

// FeedPaths returns the feed file of every assignment class. Classes not
// listed under registry.feeds use the file name the IEEE publishes them
// under; relative paths resolve against registry.dir.
func (c *Config) FeedPaths() map[domain.AssignmentClass]string {
	paths := make(map[domain.AssignmentClass]string, len(domain.AssignmentClasses))
	for _, class := range domain.AssignmentClasses {
		name := registry.FeedFileName(class)
		for key, file := range c.Registry.Feeds {
			if parsed, err := domain.ParseAssignmentClass(key); err == nil && parsed == class && file != "" {
				name = file
			}
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(c.Registry.Dir, name)
		}
		paths[class] = name
	}
	return paths
}

// ResolveNames reports whether scanners should reverse-resolve hostnames
func (c *Config) ResolveNames() bool {
	return c.Scan.ResolveNames == nil || *c.Scan.ResolveNames
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Ranges: %s, Devices: %s\n", c.Database.Ranges, c.Database.Devices)
	summary += fmt.Sprintf("Registry: %s (watch: %v)\n", c.Registry.Dir, c.Registry.Watch)
	summary += fmt.Sprintf("Scan: %s, Targets: %s, Timeout: %s",
		c.Scan.Method, strings.Join(c.Scan.Targets, " "), c.Scan.Timeout.Duration())
	return summary
}
