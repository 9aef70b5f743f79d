package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradfri-go/tradfri/pkg/model"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "home/bridge/status", statusTopic("home"))
	assert.Equal(t, "home/device/65537/state", stateTopic("home", 65537))
	assert.Equal(t, "home/device/+/set", setFilter("home"))

	tests := []struct {
		topic string
		id    int
		ok    bool
	}{
		{"home/device/65537/set", 65537, true},
		{"home/device/0/set", 0, true},
		{"home/device/65537/state", 0, false},
		{"home/device/abc/set", 0, false},
		{"home/device/1/2/set", 0, false},
		{"other/device/1/set", 0, false},
		{"home/device/-4/set", 0, false},
	}
	for _, tt := range tests {
		id, ok := parseSetTopic("home", tt.topic)
		assert.Equal(t, tt.ok, ok, tt.topic)
		assert.Equal(t, tt.id, id, tt.topic)
	}
}

func parseDevice(t *testing.T, body string) *model.Device {
	t.Helper()
	raw, err := wire.DecodeBody([]byte(body), true)
	require.NoError(t, err)
	d, err := model.ParseDevice(raw)
	require.NoError(t, err)
	return d
}

func TestNewDeviceState(t *testing.T) {
	d := parseDevice(t, `{
		"9003": 65540, "9001": "Hall remote", "5750": 0, "9019": 1, "9020": 1700000000,
		"3": {"0": "IKEA of Sweden", "1": "TRADFRI remote control", "3": "2.3.014", "6": 3, "9": 87}
	}`)

	s := newDeviceState(d)
	assert.Equal(t, "REMOTE", s.Type)
	assert.Equal(t, "IKEA of Sweden", s.Manufacturer)
	assert.Equal(t, "TRADFRI remote control", s.Model)
	assert.Equal(t, "2.3.014", s.Firmware)
	require.NotNil(t, s.Battery)
	assert.Equal(t, 87, *s.Battery)
	require.NotNil(t, s.LastSeen)
	assert.True(t, s.LastSeen.Equal(time.Unix(1700000000, 0)))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "lights")
}

func TestNewDeviceStateControls(t *testing.T) {
	blind := newDeviceState(parseDevice(t, `{"9003":1,"5750":7,"15015":[{"5536":40.5}]}`))
	assert.Equal(t, []blindState{{Position: 40}}, blind.Blinds)
	assert.Nil(t, blind.Battery)

	purifier := newDeviceState(parseDevice(t, `{"9003":2,"5750":10,"15025":[{"5900":1,"5908":10,"5907":5,"5910":259200,"5905":1}]}`))
	require.Len(t, purifier.Purifiers, 1)
	assert.Equal(t, 1, purifier.Purifiers[0].Mode)
	assert.Equal(t, 10, purifier.Purifiers[0].FanSpeed)
	assert.True(t, purifier.Purifiers[0].Locked)

	socket := newDeviceState(parseDevice(t, `{"9003":3,"5750":3,"3312":[{"5850":1}]}`))
	assert.Equal(t, []socketState{{On: true}}, socket.Sockets)
	assert.Equal(t, "SOCKET", socket.Capabilities)
}

func TestBuildSetCommand(t *testing.T) {
	tests := []struct {
		name    string
		caps    model.Capability
		payload string
		want    map[string]any
	}{
		{
			name:    "raw attributes",
			payload: `{"3311":[{"5850":1}]}`,
			want:    map[string]any{"3311": []any{map[string]any{"5850": 1.0}}},
		},
		{
			name:    "light fields combine",
			caps:    model.CapLight,
			payload: `{"on":false,"mireds":300}`,
			want:    map[string]any{"3311": []any{map[string]any{"5850": 0, "5711": 300}}},
		},
		{
			name:    "socket on",
			caps:    model.CapSocket,
			payload: `{"on":true}`,
			want:    map[string]any{"3312": []any{map[string]any{"5850": 1}}},
		},
		{
			name:    "colour with transition",
			payload: `{"color":"f1e0b5","transition":5}`,
			want:    map[string]any{"3311": []any{map[string]any{"5706": "f1e0b5", "5712": 5}}},
		},
		{
			name:    "blind",
			caps:    model.CapBlind,
			payload: `{"position":75}`,
			want:    map[string]any{"15015": []any{map[string]any{"5536": 75}}},
		},
		{
			name:    "rename",
			payload: `{"name":"Desk"}`,
			want:    map[string]any{"9001": "Desk"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := buildSetCommand(65537, tt.caps, []byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, wire.MethodReplace, cmd.Method())
			assert.Equal(t, []string{"15001", "65537"}, cmd.Path())
			assert.Equal(t, tt.want, cmd.Payload())
		})
	}
}

func TestBuildSetCommandRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"not json", `on`, ErrInvalidSet},
		{"not an object", `[1,2]`, ErrInvalidSet},
		{"empty", `{}`, ErrEmptySet},
		{"transition only", `{"transition":10}`, ErrEmptySet},
		{"mixed", `{"on":true,"5851":10}`, ErrMixedSet},
		{"unknown field", `{"brightness":10}`, ErrInvalidSet},
		{"out of range", `{"mireds":100}`, ErrInvalidSet},
		{"bad colour", `{"color":"red"}`, ErrInvalidSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildSetCommand(1, 0, []byte(tt.payload))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
