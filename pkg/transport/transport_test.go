package transport

import (
	"context"
	"testing"
	"time"

	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradfri-go/tradfri/pkg/wire"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5684, cfg.Port)

	bad := cfg
	bad.Port = 70000
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.HandshakeTimeout = -time.Second
	assert.Error(t, bad.Validate())
}

func TestNewDTLSDialerDefaults(t *testing.T) {
	d, err := NewDTLSDialer(Config{})
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.20:5684", d.Address("192.168.1.20"))
	assert.Equal(t, "gw.local:6000", d.Address("gw.local:6000"))
	assert.Equal(t, "[fe80::1]:5684", d.Address("fe80::1"))

	_, err = NewDTLSDialer(Config{Port: -1})
	assert.Error(t, err)
}

func TestDialRequiresCredentials(t *testing.T) {
	d, err := NewDTLSDialer(DefaultConfig())
	require.NoError(t, err)

	_, err = d.Dial(context.Background(), "gw.local", Credentials{Identity: "cli"})
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = d.Dial(context.Background(), "gw.local", Credentials{PSK: []byte("k")})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestDialFunc(t *testing.T) {
	var gotHost string
	var gotCreds Credentials
	dialer := DialFunc(func(_ context.Context, host string, creds Credentials) (Conn, error) {
		gotHost, gotCreds = host, creds
		return nil, ErrConnectionClosed
	})

	_, err := dialer.Dial(context.Background(), "gw", Credentials{Identity: "a", PSK: []byte("b")})
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Equal(t, "gw", gotHost)
	assert.True(t, gotCreds.Valid())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		in   codes.Code
		want wire.Code
	}{
		{codes.Content, wire.CodeContent},
		{codes.Changed, wire.CodeChanged},
		{codes.NotFound, wire.CodeNotFound},
		{codes.InternalServerError, wire.CodeInternalServerError},
		{codes.ServiceUnavailable, wire.CodeServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, codeOf(tt.in))
		})
	}
}
