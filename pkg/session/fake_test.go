package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tradfri-go/tradfri/pkg/transport"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

// fakeConn is a scripted transport.Conn.
type fakeConn struct {
	mu       sync.Mutex
	handler  func(ctx context.Context, req *transport.Request) (*transport.Response, error)
	requests []transport.Request

	// initial is delivered synchronously from Observe when set.
	initial   *transport.Response
	observeFn func(*transport.Response)
	observed  []string
	cancelled int

	// rejected answers subscriptions on these paths with a status error.
	rejected map[string]*transport.Response
	// declined reports every subscription as dropped after its first response.
	declined bool

	done      chan struct{}
	closeOnce sync.Once
	closes    int
}

func newFakeConn() *fakeConn {
	return &fakeConn{done: make(chan struct{})}
}

func (c *fakeConn) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, *req)
	h := c.handler
	c.mu.Unlock()

	if h == nil {
		return &transport.Response{Code: wire.CodeContent}, nil
	}
	return h(ctx, req)
}

func (c *fakeConn) Observe(_ context.Context, path string, fn func(*transport.Response)) (transport.Observation, error) {
	c.mu.Lock()
	c.observed = append(c.observed, path)
	rejected, isRejected := c.rejected[path]
	if !isRejected {
		c.observeFn = fn
	}
	initial := c.initial
	c.mu.Unlock()

	if isRejected {
		return nil, &transport.StatusError{Path: path, Response: rejected}
	}
	if initial != nil {
		fn(initial)
	}
	return fakeObservation{conn: c}, nil
}

// push delivers a notification to the last registered observer.
func (c *fakeConn) push(resp *transport.Response) {
	c.mu.Lock()
	fn := c.observeFn
	c.mu.Unlock()
	fn(resp)
}

func (c *fakeConn) Done() <-chan struct{} {
	return c.done
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sent() []transport.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]transport.Request(nil), c.requests...)
}

func (c *fakeConn) cancelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

type fakeObservation struct {
	conn *fakeConn
}

func (o fakeObservation) Cancel(context.Context) error {
	o.conn.mu.Lock()
	o.conn.cancelled++
	o.conn.mu.Unlock()
	return nil
}

func (o fakeObservation) Canceled() bool {
	o.conn.mu.Lock()
	defer o.conn.mu.Unlock()
	return o.conn.declined
}

// stubDialer records dials and hands out scripted connections.
type stubDialer struct{ mock.Mock }

func (d *stubDialer) Dial(_ context.Context, host string, creds transport.Credentials) (transport.Conn, error) {
	args := d.Called(host, creds)
	conn, _ := args.Get(0).(transport.Conn)
	return conn, args.Error(1)
}

func respond(code wire.Code, body string) func(context.Context, *transport.Request) (*transport.Response, error) {
	return func(context.Context, *transport.Request) (*transport.Response, error) {
		return &transport.Response{Code: code, Body: []byte(body)}, nil
	}
}

func blockUntilDone(ctx context.Context, _ *transport.Request) (*transport.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var testCreds = transport.Credentials{Identity: "tester", PSK: []byte("secret-key")}

// newTestSession returns a provisioned session whose dialer hands out conns in order.
func newTestSession(t *testing.T, conns ...*fakeConn) (*Session, *stubDialer) {
	t.Helper()
	d := &stubDialer{}
	for _, c := range conns {
		d.On("Dial", "gw.test", testCreds).Return(c, nil).Once()
	}

	s, err := New(Config{
		Host:     "gw.test",
		Identity: testCreds.Identity,
		PSK:      string(testCreds.PSK),
		Timeout:  time.Second,
		Dialer:   d,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, d
}

func waitDone(t *testing.T, obs *Observation) {
	t.Helper()
	select {
	case <-obs.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("observation %s did not finish, state %s", obs.Path(), obs.State())
	}
}
