package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tradfri-go/tradfri/pkg/api"
	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/connection"
	"github.com/tradfri-go/tradfri/pkg/metrics"
	"github.com/tradfri-go/tradfri/pkg/model"
)

// gateway is the part of the dispatcher the bridge uses.
type gateway interface {
	Request(ctx context.Context, cmd *command.Command) (any, error)
	Observe(ctx context.Context, cmd *command.Command) (connection.Subscription, error)
}

// apiGateway adapts *api.API to gateway.
type apiGateway struct {
	api *api.API
}

func (g apiGateway) Request(ctx context.Context, cmd *command.Command) (any, error) {
	return g.api.Request(ctx, cmd)
}

func (g apiGateway) Observe(ctx context.Context, cmd *command.Command) (connection.Subscription, error) {
	obs, err := g.api.Observe(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	Prefix          string
	ObserveDuration time.Duration
	Rescan          time.Duration
	Backoff         connection.BackoffConfig

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Bridge mirrors device state to MQTT and forwards set requests to the
// gateway.
type Bridge struct {
	gw     gateway
	mq     broker
	config BridgeConfig
	logger *slog.Logger

	mu      sync.Mutex
	watches map[int]*watch
	caps    map[int]model.Capability
	wg      sync.WaitGroup
}

type watch struct {
	manager *connection.Manager
	cancel  context.CancelFunc
}

// NewBridge creates a bridge between gw and mq.
func NewBridge(gw gateway, mq broker, config BridgeConfig) *Bridge {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bridge{
		gw:      gw,
		mq:      mq,
		config:  config,
		logger:  logger,
		watches: make(map[int]*watch),
		caps:    make(map[int]model.Capability),
	}
}

// Run subscribes to set requests, watches every device and rescans the
// device list until ctx ends. The first device listing must succeed.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.mq.Subscribe(setFilter(b.config.Prefix), func(topic string, payload []byte) {
		b.handleSet(ctx, topic, payload)
	}); err != nil {
		return err
	}

	defer b.stopAll()
	if err := b.sync(ctx); err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	var tick <-chan time.Time
	if b.config.Rescan > 0 {
		ticker := time.NewTicker(b.config.Rescan)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if err := b.sync(ctx); err != nil && ctx.Err() == nil {
				b.logger.Warn("device rescan failed", "error", err)
			}
		}
	}
}

// States returns the observation state of every watched device.
func (b *Bridge) States() map[int]connection.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	states := make(map[int]connection.State, len(b.watches))
	for id, w := range b.watches {
		states[id] = w.manager.State()
	}
	return states
}

// sync starts watches for new devices and stops those of removed ones.
func (b *Bridge) sync(ctx context.Context) error {
	res, err := b.gw.Request(ctx, model.ListDevices())
	if err != nil {
		return err
	}
	ids, err := model.As[[]int](res)
	if err != nil {
		return err
	}

	present := make(map[int]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, w := range b.watches {
		if !present[id] {
			b.logger.Info("device removed", "device", id)
			w.cancel()
			delete(b.watches, id)
			delete(b.caps, id)
		}
	}
	for _, id := range ids {
		if _, ok := b.watches[id]; !ok {
			b.startWatch(ctx, id)
		}
	}
	return nil
}

// startWatch keeps an observation of device id alive. Called with b.mu held.
func (b *Bridge) startWatch(ctx context.Context, id int) {
	m := connection.NewManager(func(ctx context.Context) (connection.Subscription, error) {
		return b.observe(ctx, id)
	}, connection.Config{
		Name:    fmt.Sprintf("device %d", id),
		Backoff: b.config.Backoff,
		Logger:  b.logger,
	})
	m.OnSubscribed(func() {
		if m.Subscriptions() > 1 {
			b.config.Metrics.Resubscribed()
		}
	})
	m.OnReconnecting(func(attempt int, delay time.Duration) {
		b.logger.Debug("observation retry", "device", id, "attempt", attempt, "delay", delay)
	})

	wctx, cancel := context.WithCancel(ctx)
	b.watches[id] = &watch{manager: m, cancel: cancel}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := m.Run(wctx); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Warn("device watch stopped", "device", id, "error", err)
		}
	}()
}

// observe starts one observation of device id and publishes its state.
func (b *Bridge) observe(ctx context.Context, id int) (connection.Subscription, error) {
	cmd := model.ObserveDevice(id, b.config.ObserveDuration, b.publish, nil)
	sub, err := b.gw.Observe(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if d, err := model.As[*model.Device](cmd.Result()); err == nil {
		b.publish(d)
	}
	return sub, nil
}

func (b *Bridge) publish(d *model.Device) {
	b.mu.Lock()
	b.caps[d.ID] = d.Capabilities
	b.mu.Unlock()

	payload, err := json.Marshal(newDeviceState(d))
	if err == nil {
		err = b.mq.Publish(stateTopic(b.config.Prefix, d.ID), payload, true)
	}
	if err != nil {
		b.config.Metrics.Published("error")
		b.logger.Warn("publish state failed", "device", d.ID, "error", err)
		return
	}
	b.config.Metrics.Published("ok")
	b.logger.Debug("state published", "device", d.ID)
}

// handleSet forwards one set request to the gateway.
func (b *Bridge) handleSet(ctx context.Context, topic string, payload []byte) {
	id, ok := parseSetTopic(b.config.Prefix, topic)
	if !ok {
		b.logger.Warn("ignoring set on unexpected topic", "topic", topic)
		return
	}

	b.mu.Lock()
	caps := b.caps[id]
	b.mu.Unlock()

	cmd, err := buildSetCommand(id, caps, payload)
	if err != nil {
		b.logger.Warn("rejected set request", "device", id, "error", err)
		return
	}
	if _, err := b.gw.Request(ctx, cmd); err != nil {
		b.logger.Warn("set request failed", "device", id, "command", cmd.String(), "error", err)
		return
	}
	b.logger.Debug("set request applied", "device", id, "command", cmd.String())
}

func (b *Bridge) stopAll() {
	b.mu.Lock()
	for id, w := range b.watches {
		w.cancel()
		delete(b.watches, id)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
