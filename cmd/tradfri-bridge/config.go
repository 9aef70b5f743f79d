package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tradfri-go/tradfri/pkg/connection"
)

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	QoS      int    `yaml:"qos"`
}

// Config holds the bridge configuration.
type Config struct {
	Host        string        `yaml:"host"`
	PSKFile     string        `yaml:"psk_file"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
	LogLevel    string        `yaml:"log_level"`
	MetricsAddr string        `yaml:"metrics_addr"`

	// ObserveDuration bounds one observation; the bridge renews it when it
	// ends.
	ObserveDuration time.Duration `yaml:"observe_duration"`

	// Rescan is how often the device list is re-read to pick up newly
	// paired devices. Zero disables rescanning.
	Rescan time.Duration `yaml:"rescan"`

	MQTT    MQTTConfig               `yaml:"mqtt"`
	Backoff connection.BackoffConfig `yaml:"backoff"`

	ConfigFile string `yaml:"-"`
}

// DefaultConfig returns the bridge defaults.
func DefaultConfig() Config {
	return Config{
		PSKFile:         "tradfri_psk.json",
		Timeout:         10 * time.Second,
		Retries:         3,
		LogLevel:        "info",
		MetricsAddr:     ":9464",
		ObserveDuration: time.Hour,
		Rescan:          5 * time.Minute,
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "tradfri-bridge",
			Prefix:   "tradfri",
			QoS:      1,
		},
		Backoff: connection.DefaultBackoffConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Retries < 1 {
		return errors.New("retries must be at least 1")
	}
	if c.ObserveDuration <= 0 {
		return errors.New("observe_duration must be positive")
	}
	if c.Rescan < 0 {
		return errors.New("rescan must not be negative")
	}
	if c.MQTT.Broker == "" {
		return errors.New("mqtt broker is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0-2, got %d", c.MQTT.QoS)
	}
	if c.MQTT.Prefix == "" || strings.ContainsAny(c.MQTT.Prefix, "+#") {
		return fmt.Errorf("invalid mqtt prefix %q", c.MQTT.Prefix)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q (use: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

func (c *Config) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&c.Host, "host", c.Host, "Gateway address")
	fs.StringVar(&c.PSKFile, "psk-file", c.PSKFile, "Credential file written by 'tradfri provision'")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Per-request timeout")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Prometheus listen address (empty disables)")
	fs.StringVar(&c.MQTT.Broker, "broker", c.MQTT.Broker, "MQTT broker URL")
	fs.StringVar(&c.MQTT.Prefix, "prefix", c.MQTT.Prefix, "MQTT topic prefix")
}

// parseConfig parses args, then layers the configuration file underneath
// the flags that were set explicitly.
func parseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := DefaultConfig()
	cfg.registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.ConfigFile == "" {
		return cfg, nil
	}

	flagged := cfg
	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	fromFile := DefaultConfig()
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", cfg.ConfigFile, err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			fromFile.Host = flagged.Host
		case "psk-file":
			fromFile.PSKFile = flagged.PSKFile
		case "timeout":
			fromFile.Timeout = flagged.Timeout
		case "log-level":
			fromFile.LogLevel = flagged.LogLevel
		case "metrics-addr":
			fromFile.MetricsAddr = flagged.MetricsAddr
		case "broker":
			fromFile.MQTT.Broker = flagged.MQTT.Broker
		case "prefix":
			fromFile.MQTT.Prefix = flagged.MQTT.Prefix
		}
	})
	fromFile.ConfigFile = flagged.ConfigFile
	return fromFile, nil
}
