// Package config handles the XDG configuration directory and config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is the application directory name.
	AppName = "todo"

	// ConfigFile is the config filename inside the config directory.
	ConfigFile = "config.toml"

	// DefaultBaseURL is where the todo service is expected when nothing is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds every request to the todo service.
	DefaultTimeout = 5 * time.Second

	// EnvBaseURL overrides base_url.
	EnvBaseURL = "TODO_BASE_URL"

	// EnvTimeout overrides timeout (a Go duration string).
	EnvTimeout = "TODO_TIMEOUT"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// BaseURL is the root of the todo service (without the /todos/ suffix).
	BaseURL string

	// Timeout bounds each request. Zero disables the deadline.
	Timeout time.Duration

	// OperationTimeout bounds a whole sync operation, such as every delete
	// of a clear. Zero leaves only the per-request deadline.
	OperationTimeout time.Duration

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string

	// RefreshAfterBulkFailure re-fetches the list after a partially failed
	// clear so the local view matches the service again.
	RefreshAfterBulkFailure bool

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// fileConfig is the on-disk shape of config.toml.
type fileConfig struct {
	BaseURL                 string `toml:"base_url"`
	Timeout                 string `toml:"timeout"`
	OperationTimeout        string `toml:"operation_timeout"`
	LogLevel                string `toml:"log_level"`
	RefreshAfterBulkFailure *bool  `toml:"refresh_after_bulk_failure"`
}

// New creates a Config for the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/todo or $HOME/.config/todo.
// Values come from defaults, then config.toml if present, then the environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:      dir,
		BaseURL:  DefaultBaseURL,
		Timeout:  DefaultTimeout,
		LogLevel: "info",
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Path returns the path to config.toml.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// SetBaseURL overrides the base URL, ignoring empty values.
func (c *Config) SetBaseURL(raw string) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		c.BaseURL = strings.TrimRight(raw, "/")
	}
}

func (c *Config) loadFile() error {
	var fc fileConfig
	_, err := toml.DecodeFile(c.Path(), &fc)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}

	c.SetBaseURL(fc.BaseURL)
	if fc.Timeout != "" {
		d, err := parseTimeout(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid %s: timeout: %w", ConfigFile, err)
		}
		c.Timeout = d
	}
	if fc.OperationTimeout != "" {
		d, err := parseTimeout(fc.OperationTimeout)
		if err != nil {
			return fmt.Errorf("invalid %s: operation_timeout: %w", ConfigFile, err)
		}
		c.OperationTimeout = d
	}
	if fc.LogLevel != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(fc.LogLevel))
	}
	if fc.RefreshAfterBulkFailure != nil {
		c.RefreshAfterBulkFailure = *fc.RefreshAfterBulkFailure
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.SetBaseURL(os.Getenv(EnvBaseURL))
	if raw := os.Getenv(EnvTimeout); raw != "" {
		d, err := parseTimeout(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

func parseTimeout(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", raw)
	}
	return d, nil
}
