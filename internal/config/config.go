// Package config holds daemon configuration with file and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lintshiwe/LockPort/pkg/store"
)

// Config holds the lockportd configuration. Durations are expressed in the
// file as integer seconds (milliseconds for the poll interval).
type Config struct {
	// DataDir is where the state database lives. Empty means the
	// platform default data directory.
	DataDir string `yaml:"data_dir"`

	// StorePath overrides the full database path. Takes precedence
	// over DataDir when set.
	StorePath string `yaml:"store_path"`

	// AttemptLimit is the number of wrong PINs before lockout.
	AttemptLimit int `yaml:"pin_attempt_limit"`

	// LockoutSeconds is how long PIN entry stays locked out.
	LockoutSeconds int `yaml:"pin_lockout_seconds"`

	// PinIterations is the PBKDF2 iteration count for new PIN hashes.
	PinIterations int `yaml:"pin_hash_iterations"`

	// CacheTTLSeconds is how long an accepted PIN stays cached.
	CacheTTLSeconds int `yaml:"pin_cache_seconds"`

	// PollMillis is the device enumeration interval.
	PollMillis int `yaml:"monitor_poll_ms"`

	// PromptTimeoutSeconds is how long a PIN prompt waits for input.
	PromptTimeoutSeconds int `yaml:"prompt_timeout_seconds"`

	// LockTimeoutSeconds bounds a single enable/disable attempt.
	LockTimeoutSeconds int `yaml:"lock_timeout_seconds"`

	// RecentUnlockGraceSeconds suppresses re-prompting when a synthetic
	// arrival follows a fresh unlock of the same device.
	RecentUnlockGraceSeconds int `yaml:"recent_unlock_grace_seconds"`

	// StatusAddr is the local status API listen address. Empty disables it.
	StatusAddr string `yaml:"status_addr"`

	// SyslogSocket forwards audit events to a local syslog daemon at the
	// given socket path. Empty disables syslog forwarding.
	SyslogSocket string `yaml:"syslog_socket"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		AttemptLimit:             5,
		LockoutSeconds:           300,
		PinIterations:            100_000,
		CacheTTLSeconds:          120,
		PollMillis:               500,
		PromptTimeoutSeconds:     120,
		LockTimeoutSeconds:       15,
		RecentUnlockGraceSeconds: 10,
		StatusAddr:               "127.0.0.1:7641",
		LogLevel:                 "info",
	}
}

// Load reads the config file at path (if it exists), then applies
// environment overrides and validates. A missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	c.loadFromEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("LOCKPORT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LOCKPORT_DB_PATH"); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv("LOCKPORT_STATUS_ADDR"); v != "" {
		c.StatusAddr = v
	}
	if v := os.Getenv("LOCKPORT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.AttemptLimit < 1 {
		return fmt.Errorf("pin_attempt_limit must be at least 1")
	}
	if c.LockoutSeconds < 1 {
		return fmt.Errorf("pin_lockout_seconds must be at least 1")
	}
	if c.PinIterations < 1000 {
		return fmt.Errorf("pin_hash_iterations must be at least 1000")
	}
	if c.PollMillis < 100 {
		return fmt.Errorf("monitor_poll_ms must be at least 100")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

// ResolveStorePath returns the database path the daemon should open.
func (c *Config) ResolveStorePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	if c.DataDir != "" {
		return filepath.Join(c.DataDir, "lockport.db")
	}
	return store.DefaultPath()
}

func (c *Config) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollMillis) * time.Millisecond
}

func (c *Config) PromptTimeout() time.Duration {
	return time.Duration(c.PromptTimeoutSeconds) * time.Second
}

func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}

func (c *Config) RecentUnlockGrace() time.Duration {
	return time.Duration(c.RecentUnlockGraceSeconds) * time.Second
}
