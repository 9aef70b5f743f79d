package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/model"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

// Set request errors.
var (
	ErrEmptySet   = errors.New("set request changes nothing")
	ErrMixedSet   = errors.New("set request mixes gateway attributes and named fields")
	ErrInvalidSet = errors.New("invalid set request")
)

// deviceState is the JSON published on a device's state topic.
type deviceState struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Capabilities string          `json:"capabilities"`
	Reachable    bool            `json:"reachable"`
	LastSeen     *time.Time      `json:"last_seen,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Model        string          `json:"model,omitempty"`
	Firmware     string          `json:"firmware,omitempty"`
	Battery      *int            `json:"battery,omitempty"`
	Lights       []lightState    `json:"lights,omitempty"`
	Sockets      []socketState   `json:"sockets,omitempty"`
	Blinds       []blindState    `json:"blinds,omitempty"`
	Purifiers    []purifierState `json:"purifiers,omitempty"`
}

type lightState struct {
	On     bool   `json:"on"`
	Dimmer int    `json:"dimmer"`
	Mireds int    `json:"mireds,omitempty"`
	Color  string `json:"color,omitempty"`
}

type socketState struct {
	On bool `json:"on"`
}

type blindState struct {
	Position int `json:"position"`
}

type purifierState struct {
	Mode           int  `json:"mode"`
	FanSpeed       int  `json:"fan_speed"`
	AirQuality     int  `json:"air_quality"`
	FilterLifetime int  `json:"filter_lifetime"`
	Locked         bool `json:"locked"`
}

func newDeviceState(d *model.Device) deviceState {
	s := deviceState{
		ID:           d.ID,
		Name:         d.Name,
		Type:         d.ApplicationType.String(),
		Capabilities: d.Capabilities.String(),
		Reachable:    d.Reachable,
		Manufacturer: d.Info.Manufacturer,
		Model:        d.Info.ModelNumber,
		Firmware:     d.Info.FirmwareVersion,
	}
	if !d.LastSeen.IsZero() {
		t := d.LastSeen.UTC()
		s.LastSeen = &t
	}
	if d.Info.PowerSource == model.PowerInternalBattery || d.Info.PowerSource == model.PowerBattery {
		b := d.Info.Battery
		s.Battery = &b
	}
	for _, l := range d.Lights {
		s.Lights = append(s.Lights, lightState{On: l.State, Dimmer: l.Dimmer, Mireds: l.ColorMireds, Color: l.ColorHex})
	}
	for _, o := range d.Sockets {
		s.Sockets = append(s.Sockets, socketState{On: o.State})
	}
	for _, b := range d.Blinds {
		s.Blinds = append(s.Blinds, blindState{Position: b.Position})
	}
	for _, p := range d.AirPurifiers {
		s.Purifiers = append(s.Purifiers, purifierState{
			Mode:           p.Mode,
			FanSpeed:       p.FanSpeed,
			AirQuality:     p.AirQuality,
			FilterLifetime: p.FilterLifetime,
			Locked:         p.ControlsLocked,
		})
	}
	return s
}

// setRequest is the named-field form of a set payload.
type setRequest struct {
	On         *bool   `json:"on"`
	Dimmer     *int    `json:"dimmer"`
	Mireds     *int    `json:"mireds"`
	Color      *string `json:"color"`
	Transition int     `json:"transition"`
	Position   *int    `json:"position"`
	Stop       bool    `json:"stop"`
	FanSpeed   *int    `json:"fan_speed"`
	Name       *string `json:"name"`
}

// buildSetCommand turns a set payload into one replace command for device
// id. Payloads whose keys are all gateway attribute codes are written as
// given; otherwise the named fields are translated and combined. caps
// decides whether "on" addresses a light or a socket.
func buildSetCommand(id int, caps model.Capability, payload []byte) (*command.Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSet, err)
	}
	if len(fields) == 0 {
		return nil, ErrEmptySet
	}

	numeric := 0
	for k := range fields {
		if isAttributeCode(k) {
			numeric++
		}
	}
	switch numeric {
	case len(fields):
		var raw map[string]any
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSet, err)
		}
		return command.Replace([]string{wire.RootDevices, strconv.Itoa(id)}, raw), nil
	case 0:
	default:
		return nil, ErrMixedSet
	}

	var req setRequest
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSet, err)
	}
	return req.command(id, caps)
}

func isAttributeCode(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (r *setRequest) command(id int, caps model.Capability) (*command.Command, error) {
	var parts []*command.Command
	add := func(c *command.Command, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSet, err)
		}
		parts = append(parts, c)
		return nil
	}

	if r.On != nil {
		if caps.Has(model.CapSocket) && !caps.Has(model.CapLight) {
			parts = append(parts, model.SetSocketState(id, *r.On))
		} else {
			parts = append(parts, model.SetLightState(id, *r.On))
		}
	}
	if r.Dimmer != nil {
		if err := add(model.SetDimmer(id, *r.Dimmer, r.Transition)); err != nil {
			return nil, err
		}
	}
	if r.Mireds != nil {
		if err := add(model.SetColorTemp(id, *r.Mireds, r.Transition)); err != nil {
			return nil, err
		}
	}
	if r.Color != nil {
		if err := add(model.SetColorHex(id, *r.Color, r.Transition)); err != nil {
			return nil, err
		}
	}
	if r.Position != nil {
		if err := add(model.SetBlindPosition(id, *r.Position)); err != nil {
			return nil, err
		}
	}
	if r.Stop {
		parts = append(parts, model.StopBlind(id))
	}
	if r.FanSpeed != nil {
		if err := add(model.SetPurifierFanSpeed(id, *r.FanSpeed)); err != nil {
			return nil, err
		}
	}
	if r.Name != nil {
		parts = append(parts, model.SetDeviceName(id, *r.Name))
	}

	if len(parts) == 0 {
		return nil, ErrEmptySet
	}
	cmd := parts[0]
	for _, p := range parts[1:] {
		cmd.MergeInPlace(p)
	}
	return cmd, nil
}
