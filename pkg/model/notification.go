package model

import (
	"time"

	"github.com/tradfri-go/tradfri/pkg/wire"
)

// NotificationEvent identifies what the gateway is reporting.
type NotificationEvent int

// Notification events.
const (
	EventNewFirmwareAvailable NotificationEvent = 1001
	EventGatewayReboot        NotificationEvent = 1003
	EventUnknown1004          NotificationEvent = 1004
	EventLossOfInternet       NotificationEvent = 5001
)

// String returns the event name.
func (e NotificationEvent) String() string {
	switch e {
	case EventNewFirmwareAvailable:
		return "NEW_FIRMWARE_AVAILABLE"
	case EventGatewayReboot:
		return "GATEWAY_REBOOT_NOTIFICATION"
	case EventUnknown1004:
		return "UNKNOWN_1004"
	case EventLossOfInternet:
		return "LOSS_OF_INTERNET_CONNECTIVITY"
	default:
		return "UNKNOWN"
	}
}

// Notification is one entry of the gateway's notification list.
type Notification struct {
	Event     NotificationEvent
	CreatedAt time.Time

	// Active is false once the condition has cleared.
	Active bool
	Data   []string
}

// ParseNotifications builds the notification list.
func ParseNotifications(raw any) ([]Notification, error) {
	items, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, nil
		}
		return nil, ErrUnexpectedShape
	}
	out := make([]Notification, 0, len(items))
	for _, it := range items {
		a, err := asAttrs(it)
		if err != nil {
			return nil, err
		}
		n := Notification{
			Event:     NotificationEvent(a.integer(wire.AttrNotificationEvent)),
			CreatedAt: a.unix(wire.AttrCreatedAt),
			Active:    a.flag(wire.AttrNotificationState),
		}
		if data, ok := a[wire.AttrNotificationData].([]any); ok {
			for _, d := range data {
				if s, ok := d.(string); ok {
					n.Data = append(n.Data, s)
				}
			}
		}
		out = append(out, n)
	}
	return out, nil
}
