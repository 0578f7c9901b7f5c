// Package config loads pathranger settings from defaults, an optional YAML
// config file and command-line flags, in increasing order of precedence.
// The only environment variable consulted is PATHRANGER_DB.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pbaille/pathranger/internal/frecency"
	"github.com/pbaille/pathranger/internal/store"
)

const appName = "pathranger"

// Keys, shared by the config file and the flags bound to them.
const (
	KeyDB          = "db"
	KeyHalfLife    = "half_life"
	KeyBusyTimeout = "busy_timeout"
	KeyRetryBudget = "retry_budget"
	KeyLogLevel    = "log_level"
	KeyLogFile     = "log_file"
	KeyColor       = "color"
)

// EnvDB overrides the database location.
const EnvDB = "PATHRANGER_DB"

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds the resolved settings
type Config struct {
	DB          string        `mapstructure:"db"`
	HalfLife    time.Duration `mapstructure:"half_life"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	RetryBudget time.Duration `mapstructure:"retry_budget"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFile     string        `mapstructure:"log_file"`
	Color       string        `mapstructure:"color"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DB:          DefaultDBPath(),
		HalfLife:    frecency.DefaultHalfLife,
		BusyTimeout: store.DefaultBusyTimeout,
		RetryBudget: store.DefaultRetryBudget,
		LogLevel:    "warn",
		Color:       ColorAuto,
	}
}

// Load resolves the configuration. configFile may be empty, in which case
// <user config dir>/pathranger/config.yaml is read if present. flags may be
// nil; only flags the user actually set override the file.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault(KeyDB, def.DB)
	v.SetDefault(KeyHalfLife, def.HalfLife)
	v.SetDefault(KeyBusyTimeout, def.BusyTimeout)
	v.SetDefault(KeyRetryBudget, def.RetryBudget)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyLogFile, def.LogFile)
	v.SetDefault(KeyColor, def.Color)

	if err := v.BindEnv(KeyDB, EnvDB); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, appName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, &Error{Field: "config", Message: err.Error()}
		}
	}

	if flags != nil {
		for _, key := range []string{KeyDB, KeyHalfLife, KeyBusyTimeout, KeyRetryBudget, KeyLogLevel, KeyLogFile, KeyColor} {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &Error{Field: "config", Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagName maps a config key to its command-line flag (half_life -> half-life).
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.DB == "" {
		return &Error{Field: KeyDB, Message: "database path is empty"}
	}
	if c.HalfLife <= 0 {
		return &Error{Field: KeyHalfLife, Message: "must be positive"}
	}
	if c.BusyTimeout <= 0 {
		return &Error{Field: KeyBusyTimeout, Message: "must be positive"}
	}
	if c.RetryBudget <= 0 {
		return &Error{Field: KeyRetryBudget, Message: "must be positive"}
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return &Error{Field: KeyColor, Message: fmt.Sprintf("unknown mode %q (want auto, always or never)", c.Color)}
	}
	return nil
}

// Error is a configuration error
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// DefaultDBPath returns <data dir>/pathranger/pathranger.db.
func DefaultDBPath() string {
	return filepath.Join(dataDir(), appName, appName+".db")
}

func dataDir() string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support")
	case "windows":
		if dir := os.Getenv("LocalAppData"); dir != "" {
			return dir
		}
		return filepath.Join(home, "AppData", "Local")
	}

	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" && filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(home, ".local", "share")
}
