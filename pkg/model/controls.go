package model

import (
	"fmt"
	"regexp"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

// Value ranges accepted by the gateway.
const (
	DimmerMin     = 0
	DimmerMax     = 254
	MiredsMin     = 250
	MiredsMax     = 454
	ColorXYMax    = 65535
	HueMax        = 65535
	SaturationMax = 65279
	BlindMin      = 0
	BlindMax      = 100
	FanSpeedMin   = 0
	FanSpeedMax   = 50
	TransitionMax = 36000
	CommissionMax = 900
)

// Air purifier modes.
const (
	PurifierOff  = 0
	PurifierAuto = 1
)

var hexColor = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// controlCommand writes values into the first unit of a device control block.
func controlCommand(deviceID int, block string, values map[string]any) *command.Command {
	return command.Replace(devicePath(deviceID), map[string]any{
		block: []any{values},
	})
}

func withTransition(values map[string]any, transition int) (map[string]any, error) {
	if transition == 0 {
		return values, nil
	}
	if err := checkRange("transition time", transition, 0, TransitionMax); err != nil {
		return nil, err
	}
	values[wire.AttrTransitionTime] = transition
	return values, nil
}

func boolInt(on bool) int {
	if on {
		return 1
	}
	return 0
}

// SetLightState switches the device's light on or off.
func SetLightState(deviceID int, on bool) *command.Command {
	return controlCommand(deviceID, wire.AttrLightControl, map[string]any{wire.AttrState: boolInt(on)})
}

// SetDimmer sets the brightness. transition is in tenths of a second; 0
// uses the device default.
func SetDimmer(deviceID, level, transition int) (*command.Command, error) {
	if err := checkRange("dimmer", level, DimmerMin, DimmerMax); err != nil {
		return nil, err
	}
	values, err := withTransition(map[string]any{wire.AttrDimmer: level}, transition)
	if err != nil {
		return nil, err
	}
	return controlCommand(deviceID, wire.AttrLightControl, values), nil
}

// SetColorTemp sets the colour temperature in mireds.
func SetColorTemp(deviceID, mireds, transition int) (*command.Command, error) {
	if err := checkRange("color temperature", mireds, MiredsMin, MiredsMax); err != nil {
		return nil, err
	}
	values, err := withTransition(map[string]any{wire.AttrColorMireds: mireds}, transition)
	if err != nil {
		return nil, err
	}
	return controlCommand(deviceID, wire.AttrLightControl, values), nil
}

// SetColorHex sets one of the gateway's predefined colours by hex code.
func SetColorHex(deviceID int, hex string, transition int) (*command.Command, error) {
	if !hexColor.MatchString(hex) {
		return nil, fmt.Errorf("%w: color %q is not 6 hex digits", ErrOutOfRange, hex)
	}
	values, err := withTransition(map[string]any{wire.AttrColorHex: hex}, transition)
	if err != nil {
		return nil, err
	}
	return controlCommand(deviceID, wire.AttrLightControl, values), nil
}

// SetColorXY sets the CIE xy colour coordinates.
func SetColorXY(deviceID, x, y, transition int) (*command.Command, error) {
	if err := checkRange("color x", x, 0, ColorXYMax); err != nil {
		return nil, err
	}
	if err := checkRange("color y", y, 0, ColorXYMax); err != nil {
		return nil, err
	}
	values, err := withTransition(map[string]any{wire.AttrColorX: x, wire.AttrColorY: y}, transition)
	if err != nil {
		return nil, err
	}
	return controlCommand(deviceID, wire.AttrLightControl, values), nil
}

// SetHueSaturation sets hue and saturation.
func SetHueSaturation(deviceID, hue, saturation, transition int) (*command.Command, error) {
	if err := checkRange("hue", hue, 0, HueMax); err != nil {
		return nil, err
	}
	if err := checkRange("saturation", saturation, 0, SaturationMax); err != nil {
		return nil, err
	}
	values, err := withTransition(map[string]any{
		wire.AttrColorHue:        hue,
		wire.AttrColorSaturation: saturation,
	}, transition)
	if err != nil {
		return nil, err
	}
	return controlCommand(deviceID, wire.AttrLightControl, values), nil
}

// SetSocketState switches an outlet on or off.
func SetSocketState(deviceID int, on bool) *command.Command {
	return controlCommand(deviceID, wire.AttrSocketControl, map[string]any{wire.AttrState: boolInt(on)})
}

// SetBlindPosition moves a blind; 0 is open, 100 closed.
func SetBlindPosition(deviceID, position int) (*command.Command, error) {
	if err := checkRange("blind position", position, BlindMin, BlindMax); err != nil {
		return nil, err
	}
	return controlCommand(deviceID, wire.AttrBlindControl, map[string]any{wire.AttrBlindPosition: position}), nil
}

// StopBlind stops a moving blind.
func StopBlind(deviceID int) *command.Command {
	return controlCommand(deviceID, wire.AttrBlindControl, map[string]any{wire.AttrBlindTrigger: 0})
}

// SetPurifierMode sets PurifierOff, PurifierAuto or a fixed speed level.
func SetPurifierMode(deviceID, mode int) (*command.Command, error) {
	if mode != PurifierOff && mode != PurifierAuto {
		if err := checkRange("purifier mode", mode, 10, FanSpeedMax); err != nil {
			return nil, err
		}
	}
	return controlCommand(deviceID, wire.AttrAirPurifier, map[string]any{wire.AttrPurifierMode: mode}), nil
}

// SetPurifierFanSpeed sets the purifier's fan speed.
func SetPurifierFanSpeed(deviceID, speed int) (*command.Command, error) {
	if err := checkRange("fan speed", speed, FanSpeedMin, FanSpeedMax); err != nil {
		return nil, err
	}
	return controlCommand(deviceID, wire.AttrAirPurifier, map[string]any{wire.AttrPurifierFanSpeed: speed}), nil
}

// SetPurifierLock locks or unlocks the purifier's physical controls.
func SetPurifierLock(deviceID int, locked bool) *command.Command {
	return controlCommand(deviceID, wire.AttrAirPurifier, map[string]any{wire.AttrPurifierControlsLocked: boolInt(locked)})
}

// SetDeviceName renames a device.
func SetDeviceName(deviceID int, name string) *command.Command {
	return command.Replace(devicePath(deviceID), map[string]any{wire.AttrName: name})
}
