package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/tradfri-go/tradfri/pkg/wire"
)

// Transport errors.
var (
	ErrConnectionClosed  = errors.New("connection closed")
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrNoCredentials     = errors.New("identity and key are required")
)

// Request is one outgoing exchange.
type Request struct {
	Method wire.Method

	// Path is the resource path without leading slash, e.g. "15001/65536".
	Path string

	// Payload is the encoded JSON body (nil for none).
	Payload []byte
}

// Response is a reply or an observe notification.
type Response struct {
	Code wire.Code
	Body []byte
}

// Credentials authenticate the DTLS handshake.
type Credentials struct {
	Identity string
	PSK      []byte
}

// Valid reports whether both identity and key are set.
func (c Credentials) Valid() bool {
	return c.Identity != "" && len(c.PSK) > 0
}

// Conn is an established connection to a gateway.
// Implemented by DTLSConn.
type Conn interface {
	// Do performs one request and waits for its response or ctx expiry.
	Do(ctx context.Context, req *Request) (*Response, error)

	// Observe registers for notifications on path. The first notification
	// is the current representation. fn is called from the connection's
	// receive goroutine and must not block.
	Observe(ctx context.Context, path string, fn func(*Response)) (Observation, error)

	// Done is closed when the connection terminates.
	Done() <-chan struct{}

	// Close closes the connection.
	Close() error
}

// Observation is a registered subscription.
type Observation interface {
	// Cancel deregisters the subscription at the gateway.
	Cancel(ctx context.Context) error

	// Canceled reports whether the subscription is no longer registered,
	// either after Cancel or because the gateway declined to keep it.
	Canceled() bool
}

// StatusError reports that the gateway answered a subscription request
// with a non-success code. No subscription was registered.
type StatusError struct {
	Path     string
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("observe %s: gateway answered %s", e.Path, e.Response.Code)
}

// Dialer opens connections to a gateway.
// Implemented by DTLSDialer.
type Dialer interface {
	Dial(ctx context.Context, host string, creds Credentials) (Conn, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context, host string, creds Credentials) (Conn, error)

// Dial calls f.
func (f DialFunc) Dial(ctx context.Context, host string, creds Credentials) (Conn, error) {
	return f(ctx, host, creds)
}

// Compile-time interface satisfaction checks.
var (
	_ Conn        = (*DTLSConn)(nil)
	_ Observation = (*dtlsObservation)(nil)
	_ Dialer      = (*DTLSDialer)(nil)
	_ Dialer      = DialFunc(nil)
)
