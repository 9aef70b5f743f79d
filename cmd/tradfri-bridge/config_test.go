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

func TestParseConfigLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: 192.168.1.10
observe_duration: 30m
rescan: 0s
mqtt:
  broker: tcp://mqtt.lan:1883
  prefix: home/tradfri
  username: bridge
  qos: 0
backoff:
  initial: 2s
  max: 30s
`), 0o600))

	fs := flag.NewFlagSet("tradfri-bridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg, err := parseConfig(fs, []string{"-config", path, "-prefix", "tradfri"})
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.10", cfg.Host)
	assert.Equal(t, 30*time.Minute, cfg.ObserveDuration)
	assert.Zero(t, cfg.Rescan)
	assert.Equal(t, "tcp://mqtt.lan:1883", cfg.MQTT.Broker)
	assert.Equal(t, "tradfri", cfg.MQTT.Prefix, "explicit flag wins over file")
	assert.Equal(t, "bridge", cfg.MQTT.Username)
	assert.Equal(t, "tradfri-bridge", cfg.MQTT.ClientID, "defaults survive a partial mqtt section")
	assert.Equal(t, 0, cfg.MQTT.QoS)
	assert.Equal(t, 2*time.Second, cfg.Backoff.Initial)
	assert.Equal(t, 30*time.Second, cfg.Backoff.Max)
	assert.Equal(t, ":9464", cfg.MetricsAddr)
	assert.NoError(t, cfg.Validate())
}

func TestBridgeConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no host", func(c *Config) { c.Host = "" }},
		{"no broker", func(c *Config) { c.MQTT.Broker = "" }},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }},
		{"wildcard prefix", func(c *Config) { c.MQTT.Prefix = "home/#" }},
		{"empty prefix", func(c *Config) { c.MQTT.Prefix = "" }},
		{"zero observe", func(c *Config) { c.ObserveDuration = 0 }},
		{"negative rescan", func(c *Config) { c.Rescan = -time.Second }},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }},
	}

	base := DefaultConfig()
	base.Host = "gw"
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Host = "gw"
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
