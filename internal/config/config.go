package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: Load creates a default config file on first run; Save always writes
// atomically with 0600 permissions since basic auth credentials live here.

// ICSConfig describes a single ICS subscription source feeding the calendar.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TimelineConfig controls the day/week timeline geometry.
type TimelineConfig struct {
	PixelsPerHour      float64 `yaml:"pixels_per_hour" json:"pixels_per_hour"`
	MinimumBlockHeight float64 `yaml:"minimum_block_height" json:"minimum_block_height"`
	AllDayLaneHeight   float64 `yaml:"all_day_lane_height" json:"all_day_lane_height"`
	// Overlap is "stack" (full-width blocks drawn over each other) or
	// "columns" (side-by-side lanes for concurrent events).
	Overlap string `yaml:"overlap" json:"overlap"`
}

type MonthConfig struct {
	// MaxEventsPerCell caps the events listed in a month cell; the rest are
	// summarized as "+N more". Negative shows everything.
	MaxEventsPerCell int `yaml:"max_events_per_cell" json:"max_events_per_cell"`
}

// SnapshotConfig drives the optional periodic PNG capture of /calendar.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Cron    string `yaml:"cron" json:"cron"`
	URL     string `yaml:"url" json:"url"`
	Output  string `yaml:"output" json:"output"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone of the user's local clock (e.g. "Asia/Seoul").
	// Day buckets and the current-time marker are computed in it.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the fixed first day of the week: "sunday" (default) or
	// "monday". It is never auto-detected from the locale.
	WeekStart string `yaml:"week_start" json:"week_start"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Timeline TimelineConfig `yaml:"timeline" json:"timeline"`
	Month    MonthConfig    `yaml:"month" json:"month"`

	// AgendaDays is the length of the agenda window and its navigation step.
	AgendaDays int `yaml:"agenda_days" json:"agenda_days"`

	// RefreshCron is a cron-style schedule for re-fetching the current range.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// MarkerTick is the schedule on which the current-time marker is recomputed.
	MarkerTick string `yaml:"marker_tick" json:"marker_tick"`

	// CacheDir stores per-feed ICS payloads and HTTP cache metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Local"
	defaultWeekStart   = "sunday"
	defaultLogLevel    = "info"
	defaultRefreshCron = "*/15 * * * *"
	defaultMarkerTick  = "@every 1m"
	defaultCacheDir    = "/var/lib/calview/ics-cache"
	defaultAgendaDays  = 14
	defaultSnapshotOut = "/var/lib/calview/preview.png"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = defaultWeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	if c.Timeline.PixelsPerHour <= 0 {
		c.Timeline.PixelsPerHour = 80
	}
	if c.Timeline.MinimumBlockHeight <= 0 {
		c.Timeline.MinimumBlockHeight = 40
	}
	if c.Timeline.AllDayLaneHeight <= 0 {
		c.Timeline.AllDayLaneHeight = 24
	}
	if c.Timeline.Overlap != "columns" {
		c.Timeline.Overlap = "stack"
	}
	if c.Month.MaxEventsPerCell == 0 {
		c.Month.MaxEventsPerCell = 3
	}
	if c.AgendaDays <= 0 {
		c.AgendaDays = defaultAgendaDays
	}

	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.MarkerTick == "" {
		c.MarkerTick = defaultMarkerTick
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}

	if c.Snapshot.Cron == "" {
		c.Snapshot.Cron = "*/30 * * * *"
	}
	if c.Snapshot.URL == "" {
		c.Snapshot.URL = "http://" + c.Listen + "/calendar"
	}
	if c.Snapshot.Output == "" {
		c.Snapshot.Output = defaultSnapshotOut
	}
}

// Location resolves Timezone. "Local" or an unknown zone yields time.Local
// together with the lookup error (nil for "Local").
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
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

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".calview-config-*.tmp")
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

func (c *Config) Save(path string) error {
	return Save(path, c)
}
