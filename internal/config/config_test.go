package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo/internal/config"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(body), 0600))
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvTimeout, "")

	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, config.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.OperationTimeout)
	assert.False(t, cfg.RefreshAfterBulkFailure)
}

func TestNew_ReadsConfigFile(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvTimeout, "")
	dir := t.TempDir()
	writeConfig(t, dir, `
base_url = "http://todo.internal:9000/"
timeout = "2s"
operation_timeout = "30s"
log_level = "DEBUG"
refresh_after_bulk_failure = true
`)

	cfg, err := config.New(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://todo.internal:9000", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.OperationTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.RefreshAfterBulkFailure)
}

func TestNew_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `base_url = "http://from-file"`)
	t.Setenv(config.EnvBaseURL, "http://from-env")
	t.Setenv(config.EnvTimeout, "0s")

	cfg, err := config.New(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env", cfg.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
}

func TestNew_InvalidFile(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvTimeout, "")
	dir := t.TempDir()
	writeConfig(t, dir, `base_url = [`)

	_, err := config.New(dir)
	assert.ErrorContains(t, err, "invalid config.toml")
}

func TestNew_InvalidTimeout(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvTimeout, "soon")

	_, err := config.New(t.TempDir())
	assert.ErrorContains(t, err, config.EnvTimeout)
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "todo"), config.DefaultConfigDir())
}

func TestSetBaseURL_IgnoresBlank(t *testing.T) {
	cfg := &config.Config{BaseURL: "http://a"}
	cfg.SetBaseURL("   ")
	assert.Equal(t, "http://a", cfg.BaseURL)
	cfg.SetBaseURL("http://b//")
	assert.Equal(t, "http://b", cfg.BaseURL)
}

func TestNew_InvalidOperationTimeout(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvTimeout, "")
	dir := t.TempDir()
	writeConfig(t, dir, `operation_timeout = "-1s"`)

	_, err := config.New(dir)
	assert.ErrorContains(t, err, "operation_timeout")
}
