package transport

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	piondtls "github.com/pion/dtls/v2"
	coapdtls "github.com/plgd-dev/go-coap/v3/dtls"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	coapnet "github.com/plgd-dev/go-coap/v3/net"
	"github.com/plgd-dev/go-coap/v3/net/responsewriter"
	"github.com/plgd-dev/go-coap/v3/options"
	udpClient "github.com/plgd-dev/go-coap/v3/udp/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradfri-go/tradfri/pkg/wire"
)

var gatewayCreds = Credentials{Identity: "tester", PSK: []byte("0123456789abcdef")}

type gatewayObserver struct {
	cc    *udpClient.Conn
	token message.Token
}

// testGateway is an in-process CoAP/DTLS-PSK server holding JSON resources.
type testGateway struct {
	t    *testing.T
	addr string

	mu        sync.Mutex
	resources map[string]string
	declined  map[string]bool
	observers map[string]gatewayObserver
	seq       uint32
}

func startGateway(t *testing.T, resources map[string]string) *testGateway {
	t.Helper()
	g := &testGateway{
		t:         t,
		resources: resources,
		declined:  make(map[string]bool),
		observers: make(map[string]gatewayObserver),
	}

	cfg := &piondtls.Config{
		PSK: func([]byte) ([]byte, error) {
			return gatewayCreds.PSK, nil
		},
		PSKIdentityHint: []byte("gateway"),
		CipherSuites:    []piondtls.CipherSuiteID{piondtls.TLS_PSK_WITH_AES_128_CCM_8},
	}
	ld, err := coapnet.NewDTLSListener("udp4", "127.0.0.1:0", cfg)
	require.NoError(t, err)
	g.addr = ld.Addr().String()

	srv := coapdtls.NewServer(options.WithHandlerFunc(g.handle))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = srv.Serve(ld)
	}()

	t.Cleanup(func() {
		srv.Stop()
		wg.Wait()
		_ = ld.Close()
	})
	return g
}

func (g *testGateway) handle(w *responsewriter.ResponseWriter[*udpClient.Conn], r *pool.Message) {
	path, _ := r.Path()
	path = strings.TrimPrefix(path, "/")

	g.mu.Lock()
	defer g.mu.Unlock()

	switch r.Code() {
	case codes.PUT:
		body, err := r.ReadBody()
		if err != nil {
			_ = w.SetResponse(codes.BadRequest, message.TextPlain, nil)
			return
		}
		g.resources[path] = string(body)
		_ = w.SetResponse(codes.Changed, message.TextPlain, nil)
		return
	case codes.GET:
	default:
		_ = w.SetResponse(codes.MethodNotAllowed, message.TextPlain, nil)
		return
	}

	body, found := g.resources[path]
	if !found {
		_ = w.SetResponse(codes.NotFound, message.TextPlain, bytes.NewReader([]byte("no such resource")))
		return
	}

	obs, err := r.Observe()
	switch {
	case err != nil:
		_ = w.SetResponse(codes.Content, message.AppJSON, strings.NewReader(body))
	case obs == 0:
		token := append(message.Token(nil), r.Token()...)
		if g.declined[path] {
			g.write(w.Conn(), token, body, false)
			return
		}
		g.observers[path] = gatewayObserver{cc: w.Conn(), token: token}
		g.write(w.Conn(), token, body, true)
	default:
		delete(g.observers, path)
		_ = w.SetResponse(codes.Content, message.AppJSON, strings.NewReader(body))
	}
}

// write sends a separate response. Callers hold mu.
func (g *testGateway) write(cc *udpClient.Conn, token message.Token, body string, observe bool) {
	m := cc.AcquireMessage(cc.Context())
	defer cc.ReleaseMessage(m)
	m.SetCode(codes.Content)
	m.SetToken(token)
	m.SetContentFormat(message.AppJSON)
	m.SetBody(strings.NewReader(body))
	if observe {
		g.seq++
		m.SetObserve(g.seq)
	}
	if err := cc.WriteMessage(m); err != nil {
		g.t.Logf("write %s: %v", token, err)
	}
}

// notify updates path and pushes it to its observer, if any.
func (g *testGateway) notify(path, body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resources[path] = body
	if o, ok := g.observers[path]; ok {
		g.write(o.cc, o.token, body, true)
	}
}

func (g *testGateway) decline(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.declined[path] = true
}

func (g *testGateway) resource(path string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resources[path]
}

func dialGateway(t *testing.T, g *testGateway) Conn {
	t.Helper()
	d, err := NewDTLSDialer(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := d.Dial(ctx, g.addr, gatewayCreds)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func collect(n int) (func(*Response), <-chan *Response) {
	ch := make(chan *Response, n)
	return func(r *Response) {
		select {
		case ch <- r:
		default:
		}
	}, ch
}

func next(t *testing.T, ch <-chan *Response) *Response {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("no notification")
		return nil
	}
}

func TestDTLSConnGet(t *testing.T) {
	g := startGateway(t, map[string]string{"15001/65536": `{"9001":"Lamp"}`})
	conn := dialGateway(t, g)

	resp, err := conn.Do(testContext(t), &Request{Method: wire.MethodFetch, Path: "15001/65536"})
	require.NoError(t, err)
	assert.Equal(t, wire.CodeContent, resp.Code)
	assert.JSONEq(t, `{"9001":"Lamp"}`, string(resp.Body))
}

func TestDTLSConnGetNotFound(t *testing.T) {
	g := startGateway(t, map[string]string{})
	conn := dialGateway(t, g)

	resp, err := conn.Do(testContext(t), &Request{Method: wire.MethodFetch, Path: "15001/1"})
	require.NoError(t, err)
	assert.Equal(t, wire.CodeNotFound, resp.Code)
	assert.Equal(t, "no such resource", string(resp.Body))
}

func TestDTLSConnPut(t *testing.T) {
	g := startGateway(t, map[string]string{"15001/65537": `{}`})
	conn := dialGateway(t, g)

	resp, err := conn.Do(testContext(t), &Request{
		Method:  wire.MethodReplace,
		Path:    "15001/65537",
		Payload: []byte(`{"3311":[{"5850":1}]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, wire.CodeChanged, resp.Code)
	assert.JSONEq(t, `{"3311":[{"5850":1}]}`, g.resource("15001/65537"))
}

func TestDTLSConnObserveUpdates(t *testing.T) {
	g := startGateway(t, map[string]string{"15001/65537": `{"5850":0}`})
	conn := dialGateway(t, g)
	fn, updates := collect(8)

	obs, err := conn.Observe(testContext(t), "15001/65537", fn)
	require.NoError(t, err)
	assert.False(t, obs.Canceled())

	first := next(t, updates)
	assert.Equal(t, wire.CodeContent, first.Code)
	assert.JSONEq(t, `{"5850":0}`, string(first.Body))

	g.notify("15001/65537", `{"5850":1}`)
	assert.JSONEq(t, `{"5850":1}`, string(next(t, updates).Body))

	require.NoError(t, obs.Cancel(testContext(t)))
	assert.True(t, obs.Canceled())
}

func TestDTLSConnObserveNotFound(t *testing.T) {
	g := startGateway(t, map[string]string{"15001/1": `{"5850":1}`})
	conn := dialGateway(t, g)

	liveFn, live := collect(8)
	_, err := conn.Observe(testContext(t), "15001/1", liveFn)
	require.NoError(t, err)
	next(t, live)

	fn, updates := collect(1)
	_, err = conn.Observe(testContext(t), "15001/2", fn)
	require.Error(t, err)

	var status *StatusError
	require.True(t, errors.As(err, &status), "got %v", err)
	assert.Equal(t, wire.CodeNotFound, status.Response.Code)
	assert.Equal(t, "no such resource", string(status.Response.Body))
	assert.Equal(t, "15001/2", status.Path)
	assert.Empty(t, updates, "a rejected subscription delivers nothing")

	select {
	case <-conn.Done():
		t.Fatal("connection closed after a rejected subscription")
	default:
	}

	g.notify("15001/1", `{"5850":0}`)
	assert.JSONEq(t, `{"5850":0}`, string(next(t, live).Body))
}

func TestDTLSConnObserveDeclined(t *testing.T) {
	g := startGateway(t, map[string]string{"15001/65537": `{"5850":1}`})
	g.decline("15001/65537")
	conn := dialGateway(t, g)
	fn, updates := collect(4)

	obs, err := conn.Observe(testContext(t), "15001/65537", fn)
	require.NoError(t, err)
	assert.JSONEq(t, `{"5850":1}`, string(next(t, updates).Body))
	assert.True(t, obs.Canceled(), "a response without Observe option ends the subscription")
	require.NoError(t, obs.Cancel(testContext(t)))
}

func TestDTLSConnClosed(t *testing.T) {
	g := startGateway(t, map[string]string{})
	conn := dialGateway(t, g)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	select {
	case <-conn.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("Done not closed")
	}
	_, err := conn.Do(testContext(t), &Request{Method: wire.MethodFetch, Path: "15001"})
	assert.ErrorIs(t, err, ErrConnectionClosed)
}
