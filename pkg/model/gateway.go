package model

import (
	"time"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

// GatewayInfo is the gateway's self description.
type GatewayInfo struct {
	ID                string
	Firmware          string
	NTPServer         string
	CurrentTime       time.Time
	FirstSetup        time.Time
	HomekitID         string
	CommissioningMode int

	Raw map[string]any
}

// ParseGatewayInfo builds GatewayInfo from its JSON representation.
func ParseGatewayInfo(raw any) (*GatewayInfo, error) {
	a, err := asAttrs(raw)
	if err != nil {
		return nil, err
	}
	return &GatewayInfo{
		ID:                a.str(wire.AttrGatewayID),
		Firmware:          a.str(wire.AttrFirmware),
		NTPServer:         a.str(wire.AttrNTPServer),
		CurrentTime:       a.unix(wire.AttrCurrentTimeUnix),
		FirstSetup:        a.unix(wire.AttrFirstSetup),
		HomekitID:         a.str(wire.AttrHomekitID),
		CommissioningMode: a.integer(wire.AttrCommissioningMode),
		Raw:               a,
	}, nil
}

// parsed adapts a Parse function into a command processor. Unparseable
// representations pass through unchanged.
func parsed[T any](parse func(any) (T, error)) command.Processor {
	return func(raw any) any {
		v, err := parse(raw)
		if err != nil {
			return raw
		}
		return v
	}
}

// fanOut turns a list of IDs into one command per ID.
func fanOut(get func(id int) *command.Command) command.Processor {
	return func(raw any) any {
		list, err := ids(raw)
		if err != nil {
			return raw
		}
		cmds := make([]*command.Command, len(list))
		for i, id := range list {
			cmds[i] = get(id)
		}
		return cmds
	}
}

func idList(raw any) ([]int, error) { return ids(raw) }

// ListDevices returns the command listing device IDs. Result: []int.
func ListDevices() *command.Command {
	return command.Fetch([]string{wire.RootDevices}, command.WithProcessor(parsed(idList)))
}

// GetDevice returns the command reading one device. Result: *Device.
func GetDevice(id int) *command.Command {
	return command.Fetch(devicePath(id), command.WithProcessor(parsed(ParseDevice)))
}

// GetDevices returns the command listing devices. Result: []*command.Command,
// one GetDevice per ID.
func GetDevices() *command.Command {
	return command.Fetch([]string{wire.RootDevices}, command.WithProcessor(fanOut(GetDevice)))
}

// ListGroups returns the command listing group IDs. Result: []int.
func ListGroups() *command.Command {
	return command.Fetch([]string{wire.RootGroups}, command.WithProcessor(parsed(idList)))
}

// GetGroup returns the command reading one group. Result: *Group.
func GetGroup(id int) *command.Command {
	return command.Fetch(groupPath(id), command.WithProcessor(parsed(ParseGroup)))
}

// GetGroups returns the command listing groups. Result: []*command.Command.
func GetGroups() *command.Command {
	return command.Fetch([]string{wire.RootGroups}, command.WithProcessor(fanOut(GetGroup)))
}

// ListMoods returns the command listing the mood IDs of a group. Result: []int.
func ListMoods(groupID int) *command.Command {
	return command.Fetch([]string{wire.RootMoods, itoa(groupID)}, command.WithProcessor(parsed(idList)))
}

// GetMood returns the command reading one mood. Result: *Mood.
func GetMood(groupID, moodID int) *command.Command {
	return command.Fetch(moodPath(groupID, moodID), command.WithProcessor(parsed(func(raw any) (*Mood, error) {
		return ParseMood(groupID, raw)
	})))
}

// GetMoods returns the command listing a group's moods. Result: []*command.Command.
func GetMoods(groupID int) *command.Command {
	return command.Fetch([]string{wire.RootMoods, itoa(groupID)}, command.WithProcessor(fanOut(func(id int) *command.Command {
		return GetMood(groupID, id)
	})))
}

// ListSmartTasks returns the command listing smart task IDs. Result: []int.
func ListSmartTasks() *command.Command {
	return command.Fetch([]string{wire.RootSmartTasks}, command.WithProcessor(parsed(idList)))
}

// GetSmartTask returns the command reading one task. Result: *SmartTask.
func GetSmartTask(id int) *command.Command {
	return command.Fetch(smartTaskPath(id), command.WithProcessor(parsed(ParseSmartTask)))
}

// GetSmartTasks returns the command listing tasks. Result: []*command.Command.
func GetSmartTasks() *command.Command {
	return command.Fetch([]string{wire.RootSmartTasks}, command.WithProcessor(fanOut(GetSmartTask)))
}

// GetGatewayInfo returns the command reading the gateway description.
// Result: *GatewayInfo.
func GetGatewayInfo() *command.Command {
	return command.Fetch([]string{wire.RootGateway, wire.GatewayInfo}, command.WithProcessor(parsed(ParseGatewayInfo)))
}

// GetEndpoints returns the command reading the CoRE link list as text.
func GetEndpoints() *command.Command {
	return command.Fetch([]string{wire.RootWellKnownCore}, command.WithRawResponse())
}

// GetNotifications returns the command reading active notifications.
// Result: []Notification.
func GetNotifications() *command.Command {
	return command.Fetch([]string{wire.RootNotification}, command.WithProcessor(parsed(ParseNotifications)))
}

// Reboot returns the command rebooting the gateway.
func Reboot() *command.Command {
	return command.Create([]string{wire.RootGateway, wire.GatewayReboot}, nil)
}

// FactoryReset returns the command wiping the gateway. All pairings and
// identities are lost.
func FactoryReset() *command.Command {
	return command.Create([]string{wire.RootGateway, wire.GatewayFactoryReset}, nil)
}

// SetCommissioningTimeout opens the gateway for pairing for seconds.
func SetCommissioningTimeout(seconds int) (*command.Command, error) {
	if err := checkRange("commissioning timeout", seconds, 1, CommissionMax); err != nil {
		return nil, err
	}
	return command.Replace([]string{wire.RootGateway, wire.GatewayInfo}, map[string]any{
		wire.AttrCommissioningMode: seconds,
	}), nil
}
