package model

import (
	"time"

	"github.com/tradfri-go/tradfri/pkg/wire"
)

// ApplicationType is the gateway's device class.
type ApplicationType int

// Application types.
const (
	AppRemote         ApplicationType = 0
	AppSlaveRemote    ApplicationType = 1
	AppLight          ApplicationType = 2
	AppSocket         ApplicationType = 3
	AppMotionSensor   ApplicationType = 4
	AppSignalRepeater ApplicationType = 6
	AppBlind          ApplicationType = 7
	AppSoundRemote    ApplicationType = 8
	AppAirPurifier    ApplicationType = 10
)

// String returns the application type name.
func (t ApplicationType) String() string {
	switch t {
	case AppRemote:
		return "REMOTE"
	case AppSlaveRemote:
		return "SLAVE_REMOTE"
	case AppLight:
		return "LIGHT"
	case AppSocket:
		return "SOCKET"
	case AppMotionSensor:
		return "MOTION_SENSOR"
	case AppSignalRepeater:
		return "SIGNAL_REPEATER"
	case AppBlind:
		return "BLIND"
	case AppSoundRemote:
		return "SOUND_REMOTE"
	case AppAirPurifier:
		return "AIR_PURIFIER"
	default:
		return "UNKNOWN"
	}
}

// PowerSource is how a device is powered.
type PowerSource int

// Power sources.
const (
	PowerUnknown         PowerSource = 0
	PowerInternalBattery PowerSource = 1
	PowerExternalBattery PowerSource = 2
	PowerBattery         PowerSource = 3
	PowerEthernet        PowerSource = 4
	PowerUSB             PowerSource = 5
	PowerACMains         PowerSource = 6
	PowerSolar           PowerSource = 7
)

// DeviceInfo is the static identification block.
type DeviceInfo struct {
	Manufacturer    string
	ModelNumber     string
	Serial          string
	FirmwareVersion string
	PowerSource     PowerSource
	// Battery is the charge in percent for battery powered devices.
	Battery int
}

// LightState is one light unit of a device.
type LightState struct {
	State          bool
	Dimmer         int
	ColorHex       string
	ColorHue       int
	ColorSat       int
	ColorX         int
	ColorY         int
	ColorMireds    int
	TransitionTime int
}

// SupportsColorTemp reports whether the light reported a colour temperature.
func (l LightState) SupportsColorTemp() bool {
	return l.ColorMireds > 0
}

// SupportsColor reports whether the light reported full colour coordinates.
func (l LightState) SupportsColor() bool {
	return l.ColorX > 0 || l.ColorY > 0
}

// SocketState is one outlet of a device.
type SocketState struct {
	State  bool
	Dimmer int
}

// BlindState is one blind motor of a device.
type BlindState struct {
	// Position is 0 (open) to 100 (closed).
	Position int
}

// AirPurifierState is the purifier control block.
type AirPurifierState struct {
	Mode           int
	FanSpeed       int
	AirQuality     int
	FilterLifetime int
	ControlsLocked bool
}

// Device is a paired device as reported under the devices root.
type Device struct {
	ID              int
	Name            string
	CreatedAt       time.Time
	LastSeen        time.Time
	Reachable       bool
	ApplicationType ApplicationType
	Info            DeviceInfo
	Capabilities    Capability

	Lights       []LightState
	Sockets      []SocketState
	Blinds       []BlindState
	AirPurifiers []AirPurifierState

	// Raw is the representation the record was parsed from.
	Raw map[string]any
}

// ParseDevice builds a Device from its JSON representation.
func ParseDevice(raw any) (*Device, error) {
	a, err := asAttrs(raw)
	if err != nil {
		return nil, err
	}

	info := a.object(wire.AttrDeviceInfo)
	d := &Device{
		ID:              a.integer(wire.AttrID),
		Name:            a.str(wire.AttrName),
		CreatedAt:       a.unix(wire.AttrCreatedAt),
		LastSeen:        a.unix(wire.AttrLastSeen),
		Reachable:       a.flag(wire.AttrReachable),
		ApplicationType: ApplicationType(a.integer(wire.AttrApplicationID)),
		Info: DeviceInfo{
			Manufacturer:    info.str(wire.AttrManufacturer),
			ModelNumber:     info.str(wire.AttrModelNumber),
			Serial:          info.str(wire.AttrSerial),
			FirmwareVersion: info.str(wire.AttrFirmwareVersion),
			PowerSource:     PowerSource(info.integer(wire.AttrPowerSource)),
			Battery:         info.integer(wire.AttrBattery),
		},
		Raw: a,
	}

	for _, l := range a.list(wire.AttrLightControl) {
		d.Lights = append(d.Lights, LightState{
			State:          l.flag(wire.AttrState),
			Dimmer:         l.integer(wire.AttrDimmer),
			ColorHex:       l.str(wire.AttrColorHex),
			ColorHue:       l.integer(wire.AttrColorHue),
			ColorSat:       l.integer(wire.AttrColorSaturation),
			ColorX:         l.integer(wire.AttrColorX),
			ColorY:         l.integer(wire.AttrColorY),
			ColorMireds:    l.integer(wire.AttrColorMireds),
			TransitionTime: l.integer(wire.AttrTransitionTime),
		})
	}
	for _, s := range a.list(wire.AttrSocketControl) {
		d.Sockets = append(d.Sockets, SocketState{
			State:  s.flag(wire.AttrState),
			Dimmer: s.integer(wire.AttrDimmer),
		})
	}
	for _, b := range a.list(wire.AttrBlindControl) {
		d.Blinds = append(d.Blinds, BlindState{Position: b.integer(wire.AttrBlindPosition)})
	}
	for _, p := range a.list(wire.AttrAirPurifier) {
		d.AirPurifiers = append(d.AirPurifiers, AirPurifierState{
			Mode:           p.integer(wire.AttrPurifierMode),
			FanSpeed:       p.integer(wire.AttrPurifierFanSpeed),
			AirQuality:     p.integer(wire.AttrPurifierAirQuality),
			FilterLifetime: p.integer(wire.AttrPurifierFilterLifetime),
			ControlsLocked: p.flag(wire.AttrPurifierControlsLocked),
		})
	}

	d.Capabilities = capabilitiesOf(a)
	return d, nil
}

func capabilitiesOf(a attrs) Capability {
	var c Capability
	blocks := []struct {
		key string
		bit Capability
	}{
		{wire.AttrLightControl, CapLight},
		{wire.AttrSocketControl, CapSocket},
		{wire.AttrBlindControl, CapBlind},
		{wire.AttrSignalRepeater, CapSignalRepeater},
		{wire.AttrAirPurifier, CapAirPurifier},
		{wire.AttrRemote, CapRemote},
		{wire.AttrSensor, CapSensor},
	}
	for _, b := range blocks {
		if _, ok := a[b.key]; ok {
			c |= b.bit
		}
	}
	return c
}

// Path returns the route segments of the device.
func (d *Device) Path() []string {
	return devicePath(d.ID)
}

func devicePath(id int) []string {
	return []string{wire.RootDevices, itoa(id)}
}
