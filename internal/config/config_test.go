package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(200), cfg.Payment.PerPageRate)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, time.Second, cfg.Agent.ReconnectMin)
	assert.Equal(t, time.Minute, cfg.Agent.ReconnectMax)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
payment:
  secret: supersecret
  per_page_rate: 150
agent:
  printer_name: office-laser
  fetch_timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "supersecret", cfg.Payment.Secret)
	assert.Equal(t, int64(150), cfg.Payment.PerPageRate)
	assert.Equal(t, "office-laser", cfg.Agent.PrinterName)
	assert.Equal(t, 30*time.Second, cfg.Agent.FetchTimeout)

	// Untouched keys keep their defaults.
	assert.Equal(t, "./data/printbridge.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Minute, cfg.Agent.PrintTimeout)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("PRINTBRIDGE_PORT", "7070")
	t.Setenv("PRINTBRIDGE_PAYMENT_SECRET", "env-secret")
	t.Setenv("PRINTBRIDGE_PRINTER_NAME", "env-printer")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Payment.Secret)
	assert.Equal(t, "env-printer", cfg.Agent.PrinterName)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Payment.Secret = "s"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, true},
		{"missing storage dir", func(c *Config) { c.Storage.Dir = "" }, true},
		{"missing payment secret", func(c *Config) { c.Payment.Secret = "" }, true},
		{"negative rate", func(c *Config) { c.Payment.PerPageRate = -1 }, true},
		{"provider url without key", func(c *Config) { c.Payment.ProviderURL = "https://pay.example.com" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAgent(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Agent.PrinterName = "office-laser"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing printer name", func(c *Config) { c.Agent.PrinterName = "" }, true},
		{"missing coordinator url", func(c *Config) { c.Agent.CoordinatorURL = "" }, true},
		{"missing spool dir", func(c *Config) { c.Agent.SpoolDir = "" }, true},
		{"zero fetch timeout", func(c *Config) { c.Agent.FetchTimeout = 0 }, true},
		{"zero print timeout", func(c *Config) { c.Agent.PrintTimeout = 0 }, true},
		{"reconnect max below min", func(c *Config) {
			c.Agent.ReconnectMin = time.Minute
			c.Agent.ReconnectMax = time.Second
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.ValidateAgent()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
