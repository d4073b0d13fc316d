package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"recents/internal/timeconv"
)

// APIConfig describes the platform's call-detail-record API.
type APIConfig struct {
	// BaseURL is the platform root, e.g. "https://partner.voipgrid.nl".
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Username / Password are sent as HTTP Basic Auth when both are set.
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
	// Limit caps how many records one refresh asks for.
	Limit int `yaml:"limit" json:"limit"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the local HTTP API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// ReferenceTimezone is the zone the platform API reads and writes its
	// timestamps in. IANA name or fixed offset ("+01:00").
	ReferenceTimezone string `yaml:"reference_timezone" json:"reference_timezone"`

	// DisplayTimezone decides where "today" and "yesterday" begin. Empty
	// or "Local" means the host zone.
	DisplayTimezone string `yaml:"display_timezone" json:"display_timezone"`

	// Locale is a BCP 47 tag such as "nl-NL" or "en-US".
	Locale string `yaml:"locale" json:"locale"`

	// ShortDateLayout / ShortTimeLayout override the locale's Go layouts.
	ShortDateLayout string `yaml:"short_date_layout,omitempty" json:"short_date_layout,omitempty"`
	ShortTimeLayout string `yaml:"short_time_layout,omitempty" json:"short_time_layout,omitempty"`

	API APIConfig `yaml:"api" json:"api"`

	// BackfillDays is how far back a refresh asks the API for calls.
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// RefreshCron is a standard 5-field cron schedule for periodic refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the HTTP conditional-request cache for API responses.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultLocale       = "en-US"
	defaultRefreshCron  = "*/5 * * * *"
	defaultBackfillDays = 7
	defaultLimit        = 50
	defaultCacheDir     = "./var/recents-cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            defaultListen,
		ReferenceTimezone: timeconv.DefaultReferenceZone,
		DisplayTimezone:   "Local",
		Locale:            defaultLocale,
		API: APIConfig{
			Limit: defaultLimit,
		},
		BackfillDays: defaultBackfillDays,
		RefreshCron:  defaultRefreshCron,
		CacheDir:     defaultCacheDir,
		LogLevel:     "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.ReferenceTimezone == "" {
		c.ReferenceTimezone = timeconv.DefaultReferenceZone
	}
	if c.DisplayTimezone == "" {
		c.DisplayTimezone = "Local"
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	if c.API.Limit <= 0 {
		c.API.Limit = defaultLimit
	}
	if c.BackfillDays <= 0 {
		c.BackfillDays = defaultBackfillDays
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the fields that would otherwise only fail at first use.
func (c *Config) Validate() error {
	var errs []error
	if _, err := timeconv.ParseZone(c.ReferenceTimezone); err != nil {
		errs = append(errs, fmt.Errorf("reference_timezone: %w", err))
	}
	if _, err := timeconv.ParseZone(c.DisplayTimezone); err != nil {
		errs = append(errs, fmt.Errorf("display_timezone: %w", err))
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh: %w", err))
	}
	return errors.Join(errs...)
}

// ReferenceLocation resolves ReferenceTimezone.
func (c *Config) ReferenceLocation() (*time.Location, error) {
	return timeconv.ParseZone(c.ReferenceTimezone)
}

// DisplayLocation resolves DisplayTimezone.
func (c *Config) DisplayLocation() (*time.Location, error) {
	return timeconv.ParseZone(c.DisplayTimezone)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
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
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600, since the API password
//     lives in this file.
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

	tmp, err := os.CreateTemp(dir, ".recents-config-*.tmp")
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
