package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone     = "UTC"
	defaultLogLevel     = "info"
	defaultProductID    = "-//recurcal//Schedule Export//EN"
	defaultCalendarName = "My Schedule"
	defaultUIDDomain    = "recurcal.local"
	defaultMaxInstances = 500
	defaultCacheSize    = 256
	defaultClassStart   = "09:00"
	defaultClassEnd     = "10:00"
	defaultRefresh      = "*/15 * * * *"
)

// CalendarConfig describes the envelope of exported documents.
type CalendarConfig struct {
	// ProductID is written as PRODID.
	ProductID string `yaml:"product_id" json:"product_id"`
	// Name is written as X-WR-CALNAME.
	Name string `yaml:"name" json:"name"`
	// UIDDomain is the right-hand side of generated event UIDs.
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`
}

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// MaxInstances caps candidate occurrences scanned per master task.
	MaxInstances int `yaml:"max_instances" json:"max_instances"`
	// CacheSize is the number of distinct rule strings kept decoded.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// TimetableConfig holds defaults for entries without stored times.
type TimetableConfig struct {
	DefaultStart string `yaml:"default_start" json:"default_start"`
	DefaultEnd   string `yaml:"default_end" json:"default_end"`
}

// ExportConfig controls `recurcal export -watch`.
type ExportConfig struct {
	// Refresh is a cron-style schedule string (e.g. "*/15 * * * *").
	Refresh string `yaml:"refresh" json:"refresh"`
	// Output is the document path written on each run.
	Output string `yaml:"output" json:"output"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA timezone used for exported class times and for
	// floating/date-only values on import (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Calendar  CalendarConfig  `yaml:"calendar" json:"calendar"`
	Expand    ExpandConfig    `yaml:"expand" json:"expand"`
	Timetable TimetableConfig `yaml:"timetable" json:"timetable"`
	Export    ExportConfig    `yaml:"export" json:"export"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone: defaultTimezone,
		LogLevel: defaultLogLevel,
		Calendar: CalendarConfig{
			ProductID: defaultProductID,
			Name:      defaultCalendarName,
			UIDDomain: defaultUIDDomain,
		},
		Expand: ExpandConfig{
			MaxInstances: defaultMaxInstances,
			CacheSize:    defaultCacheSize,
		},
		Timetable: TimetableConfig{
			DefaultStart: defaultClassStart,
			DefaultEnd:   defaultClassEnd,
		},
		Export: ExportConfig{
			Refresh: defaultRefresh,
			Output:  "schedule.ics",
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.Calendar.ProductID == "" {
		c.Calendar.ProductID = defaultProductID
	}
	if c.Calendar.Name == "" {
		c.Calendar.Name = defaultCalendarName
	}
	if c.Calendar.UIDDomain == "" {
		c.Calendar.UIDDomain = defaultUIDDomain
	}
	if c.Expand.MaxInstances <= 0 {
		c.Expand.MaxInstances = defaultMaxInstances
	}
	if c.Expand.CacheSize <= 0 {
		c.Expand.CacheSize = defaultCacheSize
	}
	if c.Timetable.DefaultStart == "" {
		c.Timetable.DefaultStart = defaultClassStart
	}
	if c.Timetable.DefaultEnd == "" {
		c.Timetable.DefaultEnd = defaultClassEnd
	}
	if c.Export.Refresh == "" {
		c.Export.Refresh = defaultRefresh
	}
	if c.Export.Output == "" {
		c.Export.Output = "schedule.ics"
	}
}

// Validate reports settings that Normalize cannot repair: an unknown
// timezone, a malformed refresh schedule, or unparseable default times.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if _, err := cron.ParseStandard(c.Export.Refresh); err != nil {
		errs = append(errs, fmt.Errorf("export.refresh %q: %w", c.Export.Refresh, err))
	}
	for name, v := range map[string]string{
		"timetable.default_start": c.Timetable.DefaultStart,
		"timetable.default_end":   c.Timetable.DefaultEnd,
	} {
		if _, err := time.Parse("15:04", v); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", name, v, err))
		}
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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
		return nil, fmt.Errorf("parse config %s: %w", path, err)
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

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data next to path and renames it into place with
// 0600 permissions, creating the parent directory (0700) if needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".recurcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
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
