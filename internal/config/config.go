package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// StorageConfig selects the key-value backend for events.
type StorageConfig struct {
	// Driver is one of "file", "sqlite", "memory".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the data directory for "file" and the database file for "sqlite".
	Path string `yaml:"path" json:"path"`
	// Key is the entry holding the serialized event list.
	Key string `yaml:"key" json:"key"`
}

// LayoutConfig is the geometry the web view uses to decide how many events
// fit into a day cell. Units are CSS pixels.
type LayoutConfig struct {
	CellHeight  int `yaml:"cell_height" json:"cell_height"`
	EventHeight int `yaml:"event_height" json:"event_height"`
	Gap         int `yaml:"gap" json:"gap"`
}

// CaptureConfig controls the headless-browser screenshot of the month page.
type CaptureConfig struct {
	// URL of the page to capture. Empty means the local server root.
	URL    string `yaml:"url" json:"url"`
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
	// Cron, if set, captures periodically while serving (e.g. "*/15 * * * *").
	Cron string `yaml:"cron" json:"cron"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// WeekStart is the first grid column: "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Storage StorageConfig `yaml:"storage" json:"storage"`
	Layout  LayoutConfig  `yaml:"layout" json:"layout"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen    = "127.0.0.1:8080"
	defaultWeekStart = "sunday"
	defaultDataDir   = "~/.local/share/monthcal"
	defaultKey       = "EVENTS"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = defaultWeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	switch c.Storage.Driver {
	case "file", "sqlite", "memory":
	default:
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultDataDir
		if c.Storage.Driver == "sqlite" {
			c.Storage.Path = filepath.Join(defaultDataDir, "monthcal.db")
		}
	}
	if c.Storage.Key == "" {
		c.Storage.Key = defaultKey
	}

	if c.Layout.CellHeight <= 0 {
		c.Layout.CellHeight = 96
	}
	if c.Layout.EventHeight <= 0 {
		c.Layout.EventHeight = 20
	}
	if c.Layout.Gap < 0 {
		c.Layout.Gap = 0
	}

	if c.Capture.Output == "" {
		c.Capture.Output = filepath.Join(defaultDataDir, "preview.png")
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1304
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 984
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 perms and returned.
//   - Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically via
// a temp file + rename, with final permissions 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".monthcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// BasicAuthEnabled reports whether both credentials are set.
func (c *Config) BasicAuthEnabled() bool {
	return c.BasicAuth != nil && c.BasicAuth.Username != "" && c.BasicAuth.Password != ""
}

// ExpandHome resolves a leading "~/" against the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
