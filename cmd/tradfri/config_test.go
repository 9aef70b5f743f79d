package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("tradfri", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradfri.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseConfigFlagsOnly(t *testing.T) {
	fs := newTestFlagSet()
	cfg, err := parseConfig(fs, []string{"-host", "10.0.0.2", "-timeout", "3s", "devices"})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.2", cfg.Host)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "tradfri_psk.json", cfg.PSKFile)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, []string{"devices"}, fs.Args())
	assert.NoError(t, cfg.Validate())
}

func TestParseConfigFileUnderFlags(t *testing.T) {
	path := writeConfig(t, `
host: 192.168.1.10
psk_file: /var/lib/tradfri/psk.json
timeout: 5s
retries: 5
log_level: debug
`)

	fs := newTestFlagSet()
	cfg, err := parseConfig(fs, []string{"-config", path, "-retries", "2", "info"})
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.10", cfg.Host)
	assert.Equal(t, "/var/lib/tradfri/psk.json", cfg.PSKFile)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Retries, "explicit flag wins over file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestParseConfigFileErrors(t *testing.T) {
	_, err := parseConfig(newTestFlagSet(), []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	path := writeConfig(t, "timeout: [not, a, duration]\n")
	_, err = parseConfig(newTestFlagSet(), []string{"-config", path})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no host", func(c *Config) { c.Host = "" }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"no retries", func(c *Config) { c.Retries = 0 }, true},
		{"bad level", func(c *Config) { c.LogLevel = "verbose" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Host = "gw"
			tt.modify(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
