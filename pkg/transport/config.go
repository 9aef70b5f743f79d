package transport

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/tradfri-go/tradfri/pkg/wire"
)

// Config configures a DTLSDialer.
type Config struct {
	// Port is the gateway's CoAP port (default: 5684).
	Port int

	// HandshakeTimeout bounds the DTLS handshake (default: 10s).
	// A tighter context deadline passed to Dial wins.
	HandshakeTimeout time.Duration

	// Logger receives dial and close diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default dialer configuration.
func DefaultConfig() Config {
	return Config{
		Port:             wire.DefaultPort,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("handshake timeout must be positive")
	}
	return nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
