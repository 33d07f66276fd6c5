package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	constants "touchmon/config"
	"touchmon/internal/logger"
	"touchmon/pkg/utils"

	"github.com/spf13/viper"
)

// ErrInvalidSetting is returned for unknown keys and rejected values
var ErrInvalidSetting = errors.New("invalid setting")

// Settings is the persisted settings document
type Settings struct {
	DashboardRefreshMS    int    `mapstructure:"dashboard_refresh_ms" json:"dashboard_refresh_ms"`
	RetentionDays         int    `mapstructure:"retention_days" json:"retention_days"`
	Fullscreen            bool   `mapstructure:"fullscreen" json:"fullscreen"`
	HistoryRefreshMS      int    `mapstructure:"history_refresh_ms" json:"history_refresh_ms"`
	RetentionCheckMinutes int    `mapstructure:"retention_check_minutes" json:"retention_check_minutes"`
	DBPath                string `mapstructure:"db_path" json:"db_path"`
	ExportsDir            string `mapstructure:"exports_dir" json:"exports_dir"`
	LogFile               string `mapstructure:"log_file" json:"log_file"`
	MetricsAddr           string `mapstructure:"metrics_addr" json:"metrics_addr"`
	NetInfoTimeoutMS      int    `mapstructure:"netinfo_timeout_ms" json:"netinfo_timeout_ms"`
}

// RefreshChoices are the sampling cadences offered by the settings form
var RefreshChoices = []int{1000, 2000, 5000}

// settingsDir is a variable to allow override in tests
var settingsDir = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, constants.SETTINGS_DIR_NAME)
}

// SettingsDir returns the directory holding settings, database and exports
func SettingsDir() string {
	return settingsDir()
}

// SettingsPath returns the settings document path
func SettingsPath() string {
	return filepath.Join(settingsDir(), constants.SETTINGS_FILE_NAME)
}

// Defaults returns the built-in settings
func Defaults() Settings {
	dir := settingsDir()
	return Settings{
		DashboardRefreshMS:    constants.DEFAULT_DASHBOARD_REFRESH_MS,
		RetentionDays:         constants.DEFAULT_RETENTION_DAYS,
		Fullscreen:            constants.DEFAULT_FULLSCREEN,
		HistoryRefreshMS:      constants.DEFAULT_HISTORY_REFRESH_MS,
		RetentionCheckMinutes: constants.DEFAULT_RETENTION_CHECK_MIN,
		DBPath:                filepath.Join(dir, constants.DB_FILE_NAME),
		ExportsDir:            filepath.Join(dir, constants.EXPORTS_DIR_NAME),
		LogFile:               constants.LOG_FILE,
		NetInfoTimeoutMS:      constants.DEFAULT_NETINFO_TIMEOUT_MS,
	}
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(constants.ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("dashboard_refresh_ms", d.DashboardRefreshMS)
	v.SetDefault("retention_days", d.RetentionDays)
	v.SetDefault("fullscreen", d.Fullscreen)
	v.SetDefault("history_refresh_ms", d.HistoryRefreshMS)
	v.SetDefault("retention_check_minutes", d.RetentionCheckMinutes)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("exports_dir", d.ExportsDir)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("netinfo_timeout_ms", d.NetInfoTimeoutMS)
	return v
}

// LoadSettings reads the settings document from its default location
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(SettingsPath())
}

// LoadSettingsFrom reads settings from path with environment overrides.
// A missing file yields defaults; an unreadable or malformed one yields
// defaults with a warning. Invalid values are replaced by their default.
func LoadSettingsFrom(path string) (*Settings, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			logger.Warning("Settings file %s is unreadable, using defaults: %v", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		logger.Warning("Settings file %s has invalid values, using defaults: %v", path, err)
		s = Defaults()
	}

	for _, problem := range s.Normalize() {
		logger.Warning("Settings: %s", problem)
	}
	return &s, nil
}

// Normalize replaces invalid values with defaults and returns what it fixed
func (s *Settings) Normalize() []string {
	d := Defaults()
	var fixed []string

	if s.DashboardRefreshMS < constants.MIN_SAMPLE_INTERVAL_MS {
		fixed = append(fixed, fmt.Sprintf("dashboard_refresh_ms=%d below %d, using %d",
			s.DashboardRefreshMS, constants.MIN_SAMPLE_INTERVAL_MS, d.DashboardRefreshMS))
		s.DashboardRefreshMS = d.DashboardRefreshMS
	}
	if s.RetentionDays < constants.MIN_RETENTION_DAYS || s.RetentionDays > constants.MAX_RETENTION_DAYS {
		fixed = append(fixed, fmt.Sprintf("retention_days=%d outside [%d,%d], using %d",
			s.RetentionDays, constants.MIN_RETENTION_DAYS, constants.MAX_RETENTION_DAYS, d.RetentionDays))
		s.RetentionDays = d.RetentionDays
	}
	if s.HistoryRefreshMS < constants.MIN_REFRESH_MS {
		fixed = append(fixed, fmt.Sprintf("history_refresh_ms=%d below %d, using %d",
			s.HistoryRefreshMS, constants.MIN_REFRESH_MS, d.HistoryRefreshMS))
		s.HistoryRefreshMS = d.HistoryRefreshMS
	}
	if s.RetentionCheckMinutes < 1 {
		fixed = append(fixed, fmt.Sprintf("retention_check_minutes=%d below 1, using %d",
			s.RetentionCheckMinutes, d.RetentionCheckMinutes))
		s.RetentionCheckMinutes = d.RetentionCheckMinutes
	}
	if s.NetInfoTimeoutMS < constants.MIN_NETINFO_TIMEOUT_MS {
		fixed = append(fixed, fmt.Sprintf("netinfo_timeout_ms=%d below %d, using %d",
			s.NetInfoTimeoutMS, constants.MIN_NETINFO_TIMEOUT_MS, d.NetInfoTimeoutMS))
		s.NetInfoTimeoutMS = d.NetInfoTimeoutMS
	}
	if strings.TrimSpace(s.DBPath) == "" {
		s.DBPath = d.DBPath
	}
	if strings.TrimSpace(s.ExportsDir) == "" {
		s.ExportsDir = d.ExportsDir
	}
	if strings.TrimSpace(s.LogFile) == "" {
		s.LogFile = d.LogFile
	}

	s.DBPath = utils.ExpandHome(s.DBPath)
	s.ExportsDir = utils.ExpandHome(s.ExportsDir)
	s.LogFile = utils.ExpandHome(s.LogFile)
	return fixed
}

// SaveSettings writes the settings document to its default location
func SaveSettings(s *Settings) error {
	return SaveSettingsTo(SettingsPath(), s)
}

// SaveSettingsTo writes s as JSON to path atomically
func SaveSettingsTo(path string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := utils.WriteFileAtomic(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Keys lists the settings keys, sorted
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns every setting formatted for display, keyed like Keys
func (s *Settings) Values() map[string]string {
	return map[string]string{
		"dashboard_refresh_ms":    strconv.Itoa(s.DashboardRefreshMS),
		"retention_days":          strconv.Itoa(s.RetentionDays),
		"fullscreen":              strconv.FormatBool(s.Fullscreen),
		"history_refresh_ms":      strconv.Itoa(s.HistoryRefreshMS),
		"retention_check_minutes": strconv.Itoa(s.RetentionCheckMinutes),
		"db_path":                 s.DBPath,
		"exports_dir":             s.ExportsDir,
		"log_file":                s.LogFile,
		"metrics_addr":            s.MetricsAddr,
		"netinfo_timeout_ms":      strconv.Itoa(s.NetInfoTimeoutMS),
	}
}

var setters = map[string]func(s *Settings, value string) error{
	"dashboard_refresh_ms": func(s *Settings, value string) error {
		return setInt(&s.DashboardRefreshMS, value, constants.MIN_SAMPLE_INTERVAL_MS, 0)
	},
	"retention_days": func(s *Settings, value string) error {
		return setInt(&s.RetentionDays, value, constants.MIN_RETENTION_DAYS, constants.MAX_RETENTION_DAYS)
	},
	"fullscreen": func(s *Settings, value string) error {
		b, err := utils.ParseBool(value)
		if err != nil {
			return err
		}
		s.Fullscreen = b
		return nil
	},
	"history_refresh_ms": func(s *Settings, value string) error {
		return setInt(&s.HistoryRefreshMS, value, constants.MIN_REFRESH_MS, 0)
	},
	"retention_check_minutes": func(s *Settings, value string) error {
		return setInt(&s.RetentionCheckMinutes, value, 1, 0)
	},
	"netinfo_timeout_ms": func(s *Settings, value string) error {
		return setInt(&s.NetInfoTimeoutMS, value, constants.MIN_NETINFO_TIMEOUT_MS, 0)
	},
	"db_path":      setString(func(s *Settings) *string { return &s.DBPath }),
	"exports_dir":  setString(func(s *Settings) *string { return &s.ExportsDir }),
	"log_file":     setString(func(s *Settings) *string { return &s.LogFile }),
	"metrics_addr": func(s *Settings, value string) error { s.MetricsAddr = strings.TrimSpace(value); return nil },
}

// Set parses value and assigns it to key. Nothing changes on error.
func (s *Settings) Set(key, value string) error {
	setter, ok := setters[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
	}
	if err := setter(s, value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSetting, key, err)
	}
	return nil
}

func setInt(dst *int, value string, min, max int) error {
	n, err := utils.ParseInt(value)
	if err != nil {
		return fmt.Errorf("%q is not a number", value)
	}
	if n < min {
		return fmt.Errorf("must be at least %d", min)
	}
	if max > 0 && n > max {
		return fmt.Errorf("must be at most %d", max)
	}
	*dst = n
	return nil
}

func setString(field func(s *Settings) *string) func(s *Settings, value string) error {
	return func(s *Settings, value string) error {
		value = strings.TrimSpace(value)
		if value == "" {
			return errors.New("must not be empty")
		}
		*field(s) = utils.ExpandHome(value)
		return nil
	}
}
