package model

import (
	"time"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

// observeAs builds an observing command whose updates are parsed with
// parse and handed to onUpdate. Updates that fail to parse are skipped.
func observeAs[T any](path []string, parse func(any) (T, error), d time.Duration, onUpdate func(T), onError func(error)) *command.Command {
	opts := []command.Option{
		command.WithObserve(d),
		command.WithProcessor(parsed(parse)),
	}
	if onUpdate != nil {
		opts = append(opts, command.WithUpdateHandler(func(c *command.Command) {
			if v, ok := c.Result().(T); ok {
				onUpdate(v)
			}
		}))
	}
	if onError != nil {
		opts = append(opts, command.WithErrorHandler(onError))
	}
	return command.Fetch(path, opts...)
}

// ObserveDevice returns a command observing one device for d.
func ObserveDevice(id int, d time.Duration, onUpdate func(*Device), onError func(error)) *command.Command {
	return observeAs(devicePath(id), ParseDevice, d, onUpdate, onError)
}

// ObserveGroup returns a command observing one group for d.
func ObserveGroup(id int, d time.Duration, onUpdate func(*Group), onError func(error)) *command.Command {
	return observeAs(groupPath(id), ParseGroup, d, onUpdate, onError)
}

// ObserveNotifications returns a command observing the notification list for d.
func ObserveNotifications(d time.Duration, onUpdate func([]Notification), onError func(error)) *command.Command {
	return observeAs([]string{wire.RootNotification}, ParseNotifications, d, onUpdate, onError)
}
