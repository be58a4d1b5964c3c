package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ICSImport describes an iCalendar feed whose events are copied into the
// store at startup.
type ICSImport struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is used for logging and as a prefix for imported event IDs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" env:"GRIDCAL_BASIC_AUTH_USER"`
	Password string `yaml:"password" json:"password" env:"GRIDCAL_BASIC_AUTH_PASSWORD"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" env:"GRIDCAL_LISTEN"`

	// Timezone is the IANA zone used to decide calendar days and hours.
	// Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone" env:"GRIDCAL_TIMEZONE"`

	// WeekStart is the first column of month and week views:
	// "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start" env:"GRIDCAL_WEEK_START"`

	// FirstHour and LastHour bound the hour rows of week/day views.
	FirstHour int `yaml:"first_hour" json:"first_hour" env:"GRIDCAL_FIRST_HOUR"`
	LastHour  int `yaml:"last_hour" json:"last_hour" env:"GRIDCAL_LAST_HOUR"`

	// SortByStart orders events inside a cell by start time rather than
	// insertion order.
	SortByStart bool `yaml:"sort_by_start" json:"sort_by_start" env:"GRIDCAL_SORT_BY_START"`

	// DisableSeed skips loading the sample events at startup.
	DisableSeed bool `yaml:"disable_seed" json:"disable_seed" env:"GRIDCAL_DISABLE_SEED"`

	// AssistantDelay is the pause before the assistant replies.
	AssistantDelay time.Duration `yaml:"assistant_delay" json:"assistant_delay" env:"GRIDCAL_ASSISTANT_DELAY"`

	// AgendaCron is a cron spec for the daily agenda digest; empty disables it.
	AgendaCron string `yaml:"agenda_cron" json:"agenda_cron" env:"GRIDCAL_AGENDA_CRON"`

	// SnapshotPath is where captured PNG previews of the month view go.
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path" env:"GRIDCAL_SNAPSHOT_PATH"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"GRIDCAL_LOG_LEVEL"`

	// ICSCacheDir stores fetched feeds for conditional requests.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir" env:"GRIDCAL_ICS_CACHE_DIR"`

	// Imports lists ICS feeds copied into the store at startup.
	Imports []ICSImport `yaml:"imports" json:"imports"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultWeekStart      = "sunday"
	defaultFirstHour      = 8
	defaultLastHour       = 20
	defaultAssistantDelay = time.Second
	defaultAgendaCron     = "0 8 * * *"
	defaultSnapshotPath   = "./cache/preview.png"
	defaultLogLevel       = "info"
	defaultICSCacheDir    = "./cache/ics-cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		WeekStart:      defaultWeekStart,
		FirstHour:      defaultFirstHour,
		LastHour:       defaultLastHour,
		AssistantDelay: defaultAssistantDelay,
		AgendaCron:     defaultAgendaCron,
		SnapshotPath:   defaultSnapshotPath,
		LogLevel:       defaultLogLevel,
		ICSCacheDir:    defaultICSCacheDir,
		Imports:        []ICSImport{},
	}
}

// Normalize fills in missing values so partially-filled configs behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch c.WeekStart {
	case "sunday", "monday":
	default:
		c.WeekStart = defaultWeekStart
	}
	if (c.FirstHour == 0 && c.LastHour == 0) || c.FirstHour < 0 || c.LastHour > 23 || c.FirstHour > c.LastHour {
		c.FirstHour, c.LastHour = defaultFirstHour, defaultLastHour
	}
	if c.AssistantDelay < 0 {
		c.AssistantDelay = 0
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = defaultSnapshotPath
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = defaultICSCacheDir
	}
	if c.Imports == nil {
		c.Imports = []ICSImport{}
	}
}

// WeekStartDay maps WeekStart onto a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
//
// Environment overrides are not applied here; see ApplyEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// ApplyEnv overlays GRIDCAL_* environment variables onto cfg. A .env file
// in the working directory is read first when present; real environment
// variables win over it.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	// env skips nil struct pointers, so credentials given only through the
	// environment need a target.
	if cfg.BasicAuth == nil {
		cfg.BasicAuth = &BasicAuthConfig{}
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	if cfg.BasicAuth.Username == "" && cfg.BasicAuth.Password == "" {
		cfg.BasicAuth = nil
	}
	cfg.Normalize()
	return nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
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

	tmp, err := os.CreateTemp(dir, ".gridcal-config-*.tmp")
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
