package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the CLI configuration. Values come from the defaults, then
// the YAML file named by -config, then flags given on the command line.
type Config struct {
	Host        string        `yaml:"host"`
	PSKFile     string        `yaml:"psk_file"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
	LogLevel    string        `yaml:"log_level"`
	ProtocolLog string        `yaml:"protocol_log"`
	Interactive bool          `yaml:"interactive"`

	ConfigFile string `yaml:"-"`
}

// DefaultConfig returns the CLI defaults.
func DefaultConfig() Config {
	return Config{
		PSKFile:  "tradfri_psk.json",
		Timeout:  10 * time.Second,
		Retries:  3,
		LogLevel: "info",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required (-host or host: in the config file)")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Retries < 1 {
		return errors.New("retries must be at least 1")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q (use: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// registerFlags binds the configuration to fs.
func (c *Config) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&c.Host, "host", c.Host, "Gateway address")
	fs.StringVar(&c.PSKFile, "psk-file", c.PSKFile, "Credential file (JSON, one entry per gateway)")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Per-request timeout")
	fs.IntVar(&c.Retries, "retries", c.Retries, "Attempts per request when the gateway times out")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.ProtocolLog, "protocol-log", c.ProtocolLog, "Write a protocol capture to this file (.tlog)")
	fs.BoolVar(&c.Interactive, "interactive", c.Interactive, "Start the interactive shell")
}

// parseConfig parses args and layers the configuration file underneath the
// flags that were set explicitly.
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
	fromFile, err := loadConfigFile(cfg.ConfigFile, DefaultConfig())
	if err != nil {
		return Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			fromFile.Host = flagged.Host
		case "psk-file":
			fromFile.PSKFile = flagged.PSKFile
		case "timeout":
			fromFile.Timeout = flagged.Timeout
		case "retries":
			fromFile.Retries = flagged.Retries
		case "log-level":
			fromFile.LogLevel = flagged.LogLevel
		case "protocol-log":
			fromFile.ProtocolLog = flagged.ProtocolLog
		case "interactive":
			fromFile.Interactive = flagged.Interactive
		}
	})
	fromFile.ConfigFile = flagged.ConfigFile
	return fromFile, nil
}

// loadConfigFile decodes the YAML file at path onto base.
func loadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &base); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return base, nil
}
