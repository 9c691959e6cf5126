package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "INVENTORY_TRACKER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	pushoverTokenEnv = "PUSHOVER_API_TOKEN"
	pushoverUserEnv  = "PUSHOVER_USER_KEY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Paths         PathsConfig        `yaml:"paths"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PathsConfig locates the on-disk history store and inputs.
type PathsConfig struct {
	OutputDir       string `yaml:"outputDir"`
	PreferencesFile string `yaml:"preferencesFile"`
}

// VehicleHistoryFile returns the path of the vehicle history table.
func (p PathsConfig) VehicleHistoryFile() string {
	return filepath.Join(p.OutputDir, "vehicles_history.csv")
}

// EquipmentHistoryFile returns the path of the equipment history table.
func (p PathsConfig) EquipmentHistoryFile() string {
	return filepath.Join(p.OutputDir, "equipment_history.csv")
}

// ScoresHistoryFile returns the path of the scores history table.
func (p PathsConfig) ScoresHistoryFile() string {
	return filepath.Join(p.OutputDir, "scores_history.csv")
}

// DatabaseConfig describes the optional Postgres mirror.
type DatabaseConfig struct {
	DSN  string `yaml:"dsn"`
	Sync bool   `yaml:"sync"`
}

// SchedulerConfig defines when reconciliation runs execute. An empty
// interval means a single run per process invocation.
type SchedulerConfig struct {
	Interval string         `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// RunInterval parses the configured interval; unparseable or missing
// values disable recurring runs.
func (s SchedulerConfig) RunInterval() time.Duration {
	if s.Interval == "" {
		return 0
	}
	interval, err := time.ParseDuration(s.Interval)
	if err != nil {
		log.Printf("config: invalid scheduler interval %q, running once", s.Interval)
		return 0
	}
	return interval
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Pushover PushoverConfig `yaml:"pushover"`
}

// PushoverConfig wires all data required to send push messages.
type PushoverConfig struct {
	APIToken string `yaml:"apiToken"`
	UserKey  string `yaml:"userKey"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	Queries []QueryConfig     `yaml:"queries"`
	Limit   int               `yaml:"limit"`
	Options map[string]string `yaml:"options"`
}

// QueryConfig holds one concrete search URL to walk.
type QueryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(pushoverTokenEnv); v != "" {
		c.Notifications.Pushover.APIToken = v
	}

	if v := os.Getenv(pushoverUserEnv); v != "" {
		c.Notifications.Pushover.UserKey = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Paths.OutputDir != "" {
		base.Paths.OutputDir = override.Paths.OutputDir
	}
	if override.Paths.PreferencesFile != "" {
		base.Paths.PreferencesFile = override.Paths.PreferencesFile
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Sync {
		base.Database.Sync = true
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Pushover.APIToken != "" {
		base.Notifications.Pushover.APIToken = override.Notifications.Pushover.APIToken
	}
	if override.Notifications.Pushover.UserKey != "" {
		base.Notifications.Pushover.UserKey = override.Notifications.Pushover.UserKey
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Paths:     PathsConfig{OutputDir: "results/inventory", PreferencesFile: "data/preferences.json"},
		Database:  DatabaseConfig{DSN: "", Sync: false},
		Scheduler: SchedulerConfig{Interval: "", Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Pushover: PushoverConfig{APIToken: "", UserKey: ""},
		},
		Sites: []SiteConfig{
			{
				Name:    "bmw-be-used",
				Scanner: "stocklocator",
				Queries: []QueryConfig{
					{Name: "i4", URL: "https://www.bmw.be/fr-be/sl/stocklocator_uc/results"},
				},
			},
		},
	}
}
