package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/tradfri-go/tradfri/pkg/log"
	"github.com/tradfri-go/tradfri/pkg/metrics"
	"github.com/tradfri-go/tradfri/pkg/transport"
)

// DefaultTimeout is the per-call budget when neither the call nor the
// config sets one.
const DefaultTimeout = 10 * time.Second

// Config configures a Session.
type Config struct {
	// Host is the gateway address, optionally with port.
	Host string

	// Identity and PSK authenticate the DTLS handshake. Both may be empty
	// until GeneratePSK has run.
	Identity string
	PSK      string

	// Timeout is the default per-call budget (default: 10s).
	Timeout time.Duration

	// Dialer opens gateway connections. Nil uses a DTLS dialer with
	// default settings.
	Dialer transport.Dialer

	// Logger receives operational logs. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger receives structured protocol events. Nil disables capture.
	ProtocolLogger log.Logger

	// Metrics records request and observation statistics. Nil disables metrics.
	Metrics *metrics.Metrics
}

// DefaultConfig returns a configuration with default timeouts. Host must
// still be set.
func DefaultConfig() Config {
	return Config{
		Timeout: DefaultTimeout,
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
	if (c.Identity == "") != (c.PSK == "") {
		return errors.New("identity and psk must be set together")
	}
	return nil
}
