package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"macwatch/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Database.Ranges != DefaultDatabasePath {
		t.Errorf("Database.Ranges = %s, want %s", cfg.Database.Ranges, DefaultDatabasePath)
	}
	// Devices share the ranges file unless configured apart
	if cfg.Database.Devices != cfg.Database.Ranges {
		t.Errorf("Database.Devices = %s, want %s", cfg.Database.Devices, cfg.Database.Ranges)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Server.Addr = %s, want %s", cfg.Server.Addr, DefaultServerAddr)
	}
	if cfg.Server.WriteTimeout != 0 {
		t.Errorf("Server.WriteTimeout = %s, want 0", cfg.Server.WriteTimeout.Duration())
	}
	if cfg.Scan.Method != "nmap" {
		t.Errorf("Scan.Method = %s, want nmap", cfg.Scan.Method)
	}
	if cfg.Scan.Timeout.Duration() != DefaultScanTimeout {
		t.Errorf("Scan.Timeout = %s, want %s", cfg.Scan.Timeout.Duration(), DefaultScanTimeout)
	}
	if !cfg.ResolveNames() {
		t.Error("ResolveNames() should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
database:
  ranges: /var/lib/macwatch/ranges.db
  devices: /var/lib/macwatch/devices.db
registry:
  dir: /var/lib/macwatch/ieee
  watch: true
  feeds:
    MA-S: /srv/oui36.csv
scan:
  method: sweep
  targets: [192.168.1.0/24]
  timeout: 30s
  resolve_names: false
  probe_ports: [22, 80]
server:
  addr: ":9000"
logging:
  format: json
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, got, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if got != path {
		t.Errorf("path = %s, want %s", got, path)
	}
	if cfg.Database.Devices != "/var/lib/macwatch/devices.db" {
		t.Errorf("Database.Devices = %s", cfg.Database.Devices)
	}
	if cfg.Scan.Method != "sweep" || cfg.Scan.Timeout.Duration() != 30*time.Second {
		t.Errorf("Scan = %+v", cfg.Scan)
	}
	if cfg.ResolveNames() {
		t.Error("ResolveNames() should be false")
	}
	if len(cfg.Scan.ProbePorts) != 2 {
		t.Errorf("Scan.ProbePorts = %v", cfg.Scan.ProbePorts)
	}
	if !cfg.Registry.Watch {
		t.Error("Registry.Watch should be true")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	// Unset values still get defaults
	if cfg.Server.ReadTimeout.Duration() != 15*time.Second {
		t.Errorf("Server.ReadTimeout = %s", cfg.Server.ReadTimeout.Duration())
	}
}

func TestLoadFromPathErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := LoadFromPath(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFromPath() should fail for a missing file")
	}

	tests := map[string]string{
		"bad yaml":     "scan: [",
		"bad duration": "scan:\n  timeout: soon\n",
		"bad method":   "scan:\n  method: ping\n",
		"bad format":   "logging:\n  format: xml\n",
		"bad class":    "registry:\n  feeds:\n    MA-X: x.csv\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, _, err := LoadFromPath(path); err == nil {
				t.Error("LoadFromPath() should fail")
			}
		})
	}
}

func TestFeedPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Registry.Dir = "/data/ieee"
	cfg.Registry.Feeds = map[string]string{"mam": "custom.csv", "MA-S": "/srv/oui36.csv"}

	paths := cfg.FeedPaths()
	want := map[domain.AssignmentClass]string{
		domain.ClassMAL: "/data/ieee/oui.csv",
		domain.ClassMAM: "/data/ieee/custom.csv",
		domain.ClassMAS: "/srv/oui36.csv",
	}
	for class, path := range want {
		if paths[class] != path {
			t.Errorf("FeedPaths()[%s] = %s, want %s", class, paths[class], path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Scan.Targets = []string{"192.168.1.0/24"}
	cfg.Scan.Timeout = Duration(2 * time.Minute)

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if len(loaded.Scan.Targets) != 1 || loaded.Scan.Targets[0] != "192.168.1.0/24" {
		t.Errorf("Scan.Targets = %v, want [192.168.1.0/24]", loaded.Scan.Targets)
	}
	if loaded.Scan.Timeout.Duration() != 2*time.Minute {
		t.Errorf("Scan.Timeout = %s, want 2m", loaded.Scan.Timeout.Duration())
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	explicit := filepath.Join(tmpDir, "explicit.yaml")
	if err := DefaultConfig().Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	t.Setenv(EnvConfigPath, explicit)
	if got := FindConfigPath(); got != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", got, explicit)
	}

	// Explicit path doesn't exist, should fall back to ~/.config
	t.Setenv(EnvConfigPath, filepath.Join(tmpDir, "nonexistent.yaml"))
	home := filepath.Join(tmpDir, ".config", ConfigDirName, "config.yaml")
	if err := DefaultConfig().Save(home); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if got := FindConfigPath(); got != home {
		t.Errorf("FindConfigPath() = %s, want %s", got, home)
	}
}

func TestSearchPaths(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/x.yaml")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	t.Setenv("HOME", "/home/u")

	want := []string{
		"/tmp/x.yaml",
		ConfigFileName,
		"/xdg/macwatch/config.yaml",
		"/home/u/.config/macwatch/config.yaml",
		"/etc/macwatch/config.yaml",
	}
	got := SearchPaths()
	if len(got) != len(want) {
		t.Fatalf("SearchPaths() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SearchPaths()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}
}
