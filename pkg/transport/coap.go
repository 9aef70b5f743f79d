package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	piondtls "github.com/pion/dtls/v2"
	"github.com/plgd-dev/go-coap/v3/dtls"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	udpClient "github.com/plgd-dev/go-coap/v3/udp/client"

	"github.com/tradfri-go/tradfri/pkg/wire"
)

// DTLSDialer dials gateways over CoAP/DTLS with a pre-shared key.
type DTLSDialer struct {
	config Config
	logger *slog.Logger
}

// NewDTLSDialer creates a dialer. Zero fields in config take their defaults.
func NewDTLSDialer(config Config) (*DTLSDialer, error) {
	def := DefaultConfig()
	if config.Port == 0 {
		config.Port = def.Port
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = def.HandshakeTimeout
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transport config: %w", err)
	}
	return &DTLSDialer{config: config, logger: config.logger()}, nil
}

// Address returns the UDP address for host, adding the configured port
// unless host already carries one.
func (d *DTLSDialer) Address(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(d.config.Port))
}

// Dial performs the DTLS handshake and returns a ready connection.
func (d *DTLSDialer) Dial(ctx context.Context, host string, creds Credentials) (Conn, error) {
	if !creds.Valid() {
		return nil, ErrNoCredentials
	}
	addr := d.Address(host)
	psk := append([]byte(nil), creds.PSK...)

	cfg := &piondtls.Config{
		PSK: func([]byte) ([]byte, error) {
			return psk, nil
		},
		PSKIdentityHint: []byte(creds.Identity),
		CipherSuites:    []piondtls.CipherSuiteID{piondtls.TLS_PSK_WITH_AES_128_CCM_8},
		ConnectContextMaker: func() (context.Context, func()) {
			hctx, cancel := context.WithTimeout(ctx, d.config.HandshakeTimeout)
			return hctx, cancel
		},
	}

	d.logger.Debug("dialing gateway", "addr", addr, "identity", creds.Identity)
	cc, err := dtls.Dial(addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &DTLSConn{cc: cc, addr: addr, logger: d.logger}, nil
}

// DTLSConn is a Conn backed by a go-coap DTLS client connection.
type DTLSConn struct {
	cc     *udpClient.Conn
	addr   string
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Do performs one confirmable exchange.
func (c *DTLSConn) Do(ctx context.Context, req *Request) (*Response, error) {
	select {
	case <-c.cc.Done():
		return nil, ErrConnectionClosed
	default:
	}

	var body io.ReadSeeker
	if req.Payload != nil {
		body = bytes.NewReader(req.Payload)
	}

	var (
		msg *pool.Message
		err error
	)
	switch req.Method {
	case wire.MethodFetch:
		msg, err = c.cc.Get(ctx, req.Path)
	case wire.MethodReplace:
		msg, err = c.cc.Put(ctx, req.Path, message.AppJSON, body)
	case wire.MethodCreate:
		msg, err = c.cc.Post(ctx, req.Path, message.AppJSON, body)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMethod, req.Method)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method.Verb(), req.Path, err)
	}
	return toResponse(msg)
}

// Observe registers an observation on path. A non-success answer to the
// subscription request is returned as a *StatusError.
func (c *DTLSConn) Observe(ctx context.Context, path string, fn func(*Response)) (Observation, error) {
	first := make(chan *Response, 1)
	var seen atomic.Bool

	obs, err := c.cc.Observe(ctx, path, func(msg *pool.Message) {
		resp, err := toResponse(msg)
		if err != nil {
			c.logger.Debug("dropping unreadable notification", "path", path, "error", err)
			return
		}
		if seen.CompareAndSwap(false, true) {
			first <- resp
			if !resp.Code.IsSuccess() {
				return
			}
		}
		fn(resp)
	})
	if err != nil {
		if resp := c.rejection(first); resp != nil {
			return nil, &StatusError{Path: path, Response: resp}
		}
		return nil, fmt.Errorf("observe %s: %w", path, err)
	}
	return &dtlsObservation{obs: obs}, nil
}

// rejectionGrace bounds the wait for the receive goroutine to hand over
// the response that made go-coap reject a subscription.
const rejectionGrace = 100 * time.Millisecond

// rejection returns the non-success first response of a failed
// subscription, or nil if none arrived.
func (c *DTLSConn) rejection(first <-chan *Response) *Response {
	timer := time.NewTimer(rejectionGrace)
	defer timer.Stop()

	select {
	case resp := <-first:
		if resp.Code.IsSuccess() {
			return nil
		}
		return resp
	case <-c.cc.Done():
		return nil
	case <-timer.C:
		return nil
	}
}

// Done is closed when the underlying connection terminates.
func (c *DTLSConn) Done() <-chan struct{} {
	return c.cc.Done()
}

// Close closes the connection. Safe to call more than once.
func (c *DTLSConn) Close() error {
	c.closeOnce.Do(func() {
		c.logger.Debug("closing gateway connection", "addr", c.addr)
		c.closeErr = c.cc.Close()
	})
	return c.closeErr
}

type coapObservation interface {
	Cancel(ctx context.Context, opts ...message.Option) error
	Canceled() bool
}

type dtlsObservation struct {
	obs coapObservation
}

func (o *dtlsObservation) Cancel(ctx context.Context) error {
	return o.obs.Cancel(ctx)
}

// Canceled is true once go-coap dropped the subscription, which also
// happens when the gateway answered without an Observe option.
func (o *dtlsObservation) Canceled() bool {
	return o.obs.Canceled()
}

func toResponse(msg *pool.Message) (*Response, error) {
	body, err := msg.ReadBody()
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{Code: codeOf(msg.Code()), Body: body}, nil
}

// codeOf maps a go-coap code onto the one-byte wire code.
func codeOf(c codes.Code) wire.Code {
	return wire.Code(uint8(c))
}
