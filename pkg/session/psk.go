package session

import (
	"context"

	"github.com/tradfri-go/tradfri/pkg/log"
	"github.com/tradfri-go/tradfri/pkg/transport"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

const (
	// BootstrapIdentity is the identity that authenticates with the
	// printed security code.
	BootstrapIdentity = "Client_identity"

	// SecurityCodeLength is the length of the printed security code.
	SecurityCodeLength = 16
)

// GeneratePSK exchanges the gateway's security code for a key bound to
// identity. On success the session switches to identity and the returned
// key, and any existing connection is dropped. It is never retried.
func (s *Session) GeneratePSK(ctx context.Context, securityCode, identity string) (string, error) {
	if len(securityCode) != SecurityCodeLength {
		return "", validationError("generate psk", "security code must be 16 characters")
	}
	if identity == "" {
		return "", validationError("generate psk", "identity is required")
	}

	s.credMu.Lock()
	defer s.credMu.Unlock()

	s.connMu.Lock()
	closed := s.closed
	s.connMu.Unlock()
	if closed {
		return "", ErrClosed
	}

	timeout := s.config.Timeout
	bootstrap := transport.Credentials{Identity: BootstrapIdentity, PSK: []byte(securityCode)}
	conn, connID, err := s.dial(ctx, bootstrap, timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	path := wire.JoinPath([]string{wire.RootGateway, wire.GatewayAuth})
	payload, err := wire.EncodePayload(map[string]any{wire.AttrIdentity: identity})
	if err != nil {
		return "", &Error{Kind: KindValidation, Op: "POST", Path: path, Err: err}
	}

	raw, err := s.exchange(ctx, conn, connID, wire.MethodCreate, path, payload, true, timeout, false)
	if err != nil {
		return "", err
	}

	resp, _ := raw.(map[string]any)
	key, _ := resp[wire.AttrPSK].(string)
	if key == "" {
		return "", &Error{Kind: KindProtocol, Op: "POST", Path: path, Message: "response carries no key"}
	}

	s.identity = identity
	s.psk = []byte(key)

	if s.logger != nil {
		s.logger.Info("provisioned gateway identity", "host", s.config.Host, "identity", identity)
	}
	s.logState(connID, log.StateEntityCredentials, BootstrapIdentity, identity, "", "psk generated")

	s.dropConnection("credentials changed")
	return key, nil
}

// dropConnection closes the current connection, if any.
func (s *Session) dropConnection(reason string) {
	s.connMu.Lock()
	conn, connID := s.conn, s.connID
	s.conn, s.connID = nil, ""
	s.connMu.Unlock()

	if conn == nil {
		return
	}
	s.logState(connID, log.StateEntityConnection, connStateConnected, connStateDisconnected, "", reason)
	conn.Close()
}
