package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/log"
	"github.com/tradfri-go/tradfri/pkg/metrics"
	"github.com/tradfri-go/tradfri/pkg/transport"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

// Connection states reported to the protocol logger.
const (
	connStateConnected    = "CONNECTED"
	connStateDisconnected = "DISCONNECTED"
)

// Session executes commands against one gateway.
//
// Requests hold the credentials for reading; GeneratePSK holds them for
// writing, so provisioning waits for in-flight requests and blocks new ones.
type Session struct {
	config         Config
	dialer         transport.Dialer
	logger         *slog.Logger
	protocolLogger log.Logger
	metrics        *metrics.Metrics

	credMu   sync.RWMutex
	identity string
	psk      []byte

	connMu sync.Mutex
	conn   transport.Conn
	connID string
	closed bool

	registry *Registry
}

// New creates a session. No connection is made until the first command.
func New(config Config) (*Session, error) {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dialer := config.Dialer
	if dialer == nil {
		d, err := transport.NewDTLSDialer(transport.Config{Logger: config.Logger})
		if err != nil {
			return nil, err
		}
		dialer = d
	}

	s := &Session{
		config:         config,
		dialer:         dialer,
		logger:         config.Logger,
		protocolLogger: config.ProtocolLogger,
		metrics:        config.Metrics,
		identity:       config.Identity,
		psk:            []byte(config.PSK),
	}
	s.registry = newRegistry()
	return s, nil
}

// Host returns the gateway address.
func (s *Session) Host() string {
	return s.config.Host
}

// Identity returns the PSK identity in use.
func (s *Session) Identity() string {
	s.credMu.RLock()
	defer s.credMu.RUnlock()
	return s.identity
}

// Registry returns the session's observation registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Execute runs cmd. Observing commands start an observation and return
// the first result; use Observe to get the handle.
func (s *Session) Execute(ctx context.Context, cmd *command.Command, timeout time.Duration) (any, error) {
	if cmd == nil {
		return nil, validationError("execute", "nil command")
	}
	if cmd.Observe() {
		if _, err := s.Observe(ctx, cmd, timeout); err != nil {
			return nil, err
		}
		return cmd.Result(), nil
	}
	return s.Request(ctx, cmd, timeout)
}

// Request performs one request/response exchange for cmd and stores the
// result on it. A timeout of zero uses the session default.
func (s *Session) Request(ctx context.Context, cmd *command.Command, timeout time.Duration) (any, error) {
	if cmd == nil {
		return nil, validationError("request", "nil command")
	}
	timeout = s.timeout(timeout)
	op, path := cmd.Method().Verb(), cmd.PathString()

	payload, err := wire.EncodePayload(cmd.Payload())
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Path: path, Err: err}
	}

	s.credMu.RLock()
	defer s.credMu.RUnlock()

	conn, connID, err := s.connection(ctx, timeout)
	if err != nil {
		s.metrics.ObserveRequest(op, kindLabel(err), 0)
		return nil, err
	}

	raw, err := s.exchange(ctx, conn, connID, cmd.Method(), path, payload, cmd.ParseResponse(), timeout, true)
	if err != nil {
		return nil, err
	}
	cmd.SetResult(raw)
	return cmd.Result(), nil
}

// Close cancels all observations and closes the connection.
func (s *Session) Close() error {
	s.connMu.Lock()
	s.closed = true
	conn, connID := s.conn, s.connID
	s.conn, s.connID = nil, ""
	s.connMu.Unlock()

	s.registry.CancelAll()

	if conn == nil {
		return nil
	}
	s.logState(connID, log.StateEntityConnection, connStateConnected, connStateDisconnected, "", "session closed")
	return conn.Close()
}

func (s *Session) timeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return s.config.Timeout
}

// connection returns the live connection, dialing if needed.
// Callers hold credMu.
func (s *Session) connection(ctx context.Context, timeout time.Duration) (transport.Conn, string, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed {
		return nil, "", ErrClosed
	}
	if s.conn != nil {
		select {
		case <-s.conn.Done():
			s.logState(s.connID, log.StateEntityConnection, connStateConnected, connStateDisconnected, "", "connection terminated")
			s.conn, s.connID = nil, ""
		default:
			return s.conn, s.connID, nil
		}
	}

	creds := transport.Credentials{Identity: s.identity, PSK: s.psk}
	if !creds.Valid() {
		return nil, "", validationError("dial", "no identity and key configured; run GeneratePSK first")
	}

	conn, connID, err := s.dial(ctx, creds, timeout)
	if err != nil {
		return nil, "", err
	}
	s.conn, s.connID = conn, connID
	return conn, connID, nil
}

func (s *Session) dial(ctx context.Context, creds transport.Credentials, timeout time.Duration) (transport.Conn, string, error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := s.dialer.Dial(dctx, s.config.Host, creds)
	if err != nil {
		err = classifyExchange(ctx, dctx, "dial", s.config.Host, err)
		s.logError(log.LayerTransport, "", err, "dial "+s.config.Host)
		return nil, "", err
	}

	connID := uuid.NewString()
	if s.logger != nil {
		s.logger.Debug("connected to gateway", "host", s.config.Host, "identity", creds.Identity, "conn_id", connID)
	}
	s.logState(connID, log.StateEntityConnection, connStateDisconnected, connStateConnected, "", "")
	return conn, connID, nil
}

// exchange sends one request on conn and classifies the outcome. Timeouts
// and transport failures reset the connection when the session owns it.
func (s *Session) exchange(ctx context.Context, conn transport.Conn, connID string, method wire.Method, path string, payload []byte, parseJSON bool, timeout time.Duration, owned bool) (any, error) {
	op := method.Verb()
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logRequest(connID, method, path, payload)
	start := time.Now()
	resp, err := conn.Do(rctx, &transport.Request{Method: method, Path: path, Payload: payload})
	rtt := time.Since(start)

	if err != nil {
		err = classifyExchange(ctx, rctx, op, path, err)
		s.metrics.ObserveRequest(op, kindLabel(err), rtt)
		s.logError(log.LayerSession, connID, err, op+" "+path)
		if owned && KindOf(err) != 0 {
			s.reset(conn, err.Error())
		}
		return nil, err
	}

	s.logResponse(connID, log.MessageTypeResponse, path, resp, &rtt)

	v, err := classifyResponse(op, path, resp.Code, resp.Body, parseJSON)
	if err != nil {
		s.metrics.ObserveRequest(op, kindLabel(err), rtt)
		s.logError(log.LayerSession, connID, err, op+" "+path)
		return nil, err
	}
	s.metrics.ObserveRequest(op, "ok", rtt)
	return v, nil
}

// reset drops conn so the next call redials. Observations bound to conn
// see it close and fail.
func (s *Session) reset(conn transport.Conn, reason string) {
	s.connMu.Lock()
	current := s.conn == conn
	connID := s.connID
	if current {
		s.conn, s.connID = nil, ""
	}
	s.connMu.Unlock()

	if !current {
		conn.Close()
		return
	}

	s.metrics.ConnectionReset()
	if s.logger != nil {
		s.logger.Warn("resetting gateway connection", "host", s.config.Host, "conn_id", connID, "reason", reason)
	}
	s.logState(connID, log.StateEntityConnection, connStateConnected, connStateDisconnected, "", reason)
	conn.Close()
}

func kindLabel(err error) string {
	if k := KindOf(err); k != 0 {
		return k.String()
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if errors.Is(err, ErrClosed) {
		return "closed"
	}
	return "unknown"
}
