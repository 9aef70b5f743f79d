package main

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/connection"
	"github.com/tradfri-go/tradfri/pkg/metrics"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

const (
	bulbJSON    = `{"9003":65537,"9001":"Desk lamp","5750":2,"9019":1,"3311":[{"5850":1,"5851":120,"5711":370}]}`
	bulbOffJSON = `{"9003":65537,"9001":"Desk lamp","5750":2,"9019":1,"3311":[{"5850":0,"5851":120,"5711":370}]}`
	socketJSON  = `{"9003":65538,"9001":"Outlet","5750":3,"9019":1,"3312":[{"5850":0}]}`
)

var errObserveRefused = errors.New("observe refused")

// fakeSub ends when its context is cancelled or stop is called.
type fakeSub struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newFakeSub(ctx context.Context) *fakeSub {
	s := &fakeSub{done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			s.stop(nil)
		case <-s.done:
		}
	}()
	return s
}

func (s *fakeSub) stop(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

func (s *fakeSub) Done() <-chan struct{} { return s.done }
func (s *fakeSub) Err() error            { return s.err }

// fakeGateway serves the device list and device bodies from memory.
type fakeGateway struct {
	mu        sync.Mutex
	devices   []int
	bodies    map[int]string
	listErr   error
	failFirst int
	observes  map[int]int
	subs      map[int]*fakeSub
	cmds      map[int]*command.Command
	writes    []*command.Command
}

func newFakeGateway(bodies map[int]string) *fakeGateway {
	g := &fakeGateway{
		bodies:   bodies,
		observes: make(map[int]int),
		subs:     make(map[int]*fakeSub),
		cmds:     make(map[int]*command.Command),
	}
	for id := range bodies {
		g.devices = append(g.devices, id)
	}
	slices.Sort(g.devices)
	return g
}

func (g *fakeGateway) Request(_ context.Context, cmd *command.Command) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cmd.Method() == wire.MethodReplace {
		g.writes = append(g.writes, cmd)
		return nil, nil
	}
	if g.listErr != nil {
		return nil, g.listErr
	}
	raw := make([]any, len(g.devices))
	for i, id := range g.devices {
		raw[i] = float64(id)
	}
	cmd.SetResult(raw)
	return cmd.Result(), nil
}

func (g *fakeGateway) Observe(ctx context.Context, cmd *command.Command) (connection.Subscription, error) {
	id, _ := strconv.Atoi(cmd.Path()[1])

	g.mu.Lock()
	defer g.mu.Unlock()
	g.observes[id]++
	if g.failFirst > 0 {
		g.failFirst--
		return nil, errObserveRefused
	}

	raw, err := wire.DecodeBody([]byte(g.bodies[id]), true)
	if err != nil {
		return nil, err
	}
	cmd.SetResult(raw)
	sub := newFakeSub(ctx)
	g.subs[id] = sub
	g.cmds[id] = cmd
	return sub, nil
}

// push delivers an update to the live observation of device id.
func (g *fakeGateway) push(t *testing.T, id int, body string) {
	t.Helper()
	g.mu.Lock()
	cmd := g.cmds[id]
	g.mu.Unlock()
	require.NotNil(t, cmd)

	raw, err := wire.DecodeBody([]byte(body), true)
	require.NoError(t, err)
	cmd.SetResult(raw)
	cmd.UpdateHandler()(cmd)
}

func (g *fakeGateway) observeCount(id int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.observes[id]
}

func (g *fakeGateway) sub(id int) *fakeSub {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.subs[id]
}

func (g *fakeGateway) written() []*command.Command {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.writes)
}

type published struct {
	topic    string
	payload  []byte
	retained bool
}

type fakeBroker struct {
	mu       sync.Mutex
	messages []published
	handlers map[string]MessageHandler
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]MessageHandler)}
}

func (b *fakeBroker) Publish(topic string, payload []byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, published{topic: topic, payload: payload, retained: retained})
	return nil
}

func (b *fakeBroker) Subscribe(topic string, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) Close() {}

// deliver calls the handler registered for filter.
func (b *fakeBroker) deliver(t *testing.T, filter, topic, payload string) {
	t.Helper()
	b.mu.Lock()
	h := b.handlers[filter]
	b.mu.Unlock()
	require.NotNil(t, h, "no subscription for %s", filter)
	h(topic, []byte(payload))
}

// states returns the decoded payloads published on topic, in order.
func (b *fakeBroker) states(topic string) []deviceState {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []deviceState
	for _, m := range b.messages {
		if m.topic != topic {
			continue
		}
		var s deviceState
		if json.Unmarshal(m.payload, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

func testBackoff() connection.BackoffConfig {
	return connection.BackoffConfig{
		Initial:    time.Millisecond,
		Max:        5 * time.Millisecond,
		Multiplier: 2,
	}
}

type runningBridge struct {
	bridge *Bridge
	cancel context.CancelFunc
	done   chan error
}

func startBridge(t *testing.T, gw gateway, mq broker, m *metrics.Metrics) *runningBridge {
	t.Helper()
	b := NewBridge(gw, mq, BridgeConfig{
		Prefix:          "tradfri",
		ObserveDuration: time.Minute,
		Backoff:         testBackoff(),
		Metrics:         m,
	})
	ctx, cancel := context.WithCancel(context.Background())
	rb := &runningBridge{bridge: b, cancel: cancel, done: make(chan error, 1)}
	go func() { rb.done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-rb.done
	})
	return rb
}

func TestBridgePublishesState(t *testing.T) {
	gw := newFakeGateway(map[int]string{65537: bulbJSON})
	mq := newFakeBroker()
	m := metrics.New(prometheus.NewRegistry())
	startBridge(t, gw, mq, m)

	topic := "tradfri/device/65537/state"
	require.Eventually(t, func() bool { return len(mq.states(topic)) == 1 }, time.Second, 5*time.Millisecond)

	first := mq.states(topic)[0]
	assert.Equal(t, 65537, first.ID)
	assert.Equal(t, "Desk lamp", first.Name)
	assert.Equal(t, "LIGHT", first.Type)
	require.Len(t, first.Lights, 1)
	assert.Equal(t, lightState{On: true, Dimmer: 120, Mireds: 370}, first.Lights[0])

	gw.push(t, 65537, bulbOffJSON)
	states := mq.states(topic)
	require.Len(t, states, 2)
	assert.False(t, states[1].Lights[0].On)

	mq.mu.Lock()
	for _, msg := range mq.messages {
		assert.True(t, msg.retained)
	}
	mq.mu.Unlock()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BridgePublishes.WithLabelValues("ok")))
}

func TestBridgeResubscribesStoppedObservation(t *testing.T) {
	gw := newFakeGateway(map[int]string{65537: bulbJSON})
	m := metrics.New(prometheus.NewRegistry())
	startBridge(t, gw, newFakeBroker(), m)

	require.Eventually(t, func() bool { return gw.sub(65537) != nil }, time.Second, 5*time.Millisecond)
	gw.sub(65537).stop(errors.New("connection closed"))

	require.Eventually(t, func() bool { return gw.observeCount(65537) == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.BridgeResubscribes) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBridgeRetriesRefusedObservation(t *testing.T) {
	gw := newFakeGateway(map[int]string{65537: bulbJSON})
	gw.failFirst = 2
	mq := newFakeBroker()
	startBridge(t, gw, mq, nil)

	require.Eventually(t, func() bool {
		return len(mq.states("tradfri/device/65537/state")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, gw.observeCount(65537))
}

func TestBridgeRunFailsWithoutDeviceList(t *testing.T) {
	gw := newFakeGateway(nil)
	gw.listErr = errors.New("handshake failed")

	b := NewBridge(gw, newFakeBroker(), BridgeConfig{Prefix: "tradfri", ObserveDuration: time.Minute})
	err := b.Run(context.Background())
	assert.ErrorContains(t, err, "list devices")
	assert.ErrorContains(t, err, "handshake failed")
}

func TestBridgeSyncTracksDeviceList(t *testing.T) {
	gw := newFakeGateway(map[int]string{65537: bulbJSON, 65538: socketJSON})
	b := NewBridge(gw, newFakeBroker(), BridgeConfig{
		Prefix:          "tradfri",
		ObserveDuration: time.Minute,
		Backoff:         testBackoff(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer b.stopAll()

	require.NoError(t, b.sync(ctx))
	assert.Len(t, b.States(), 2)
	require.Eventually(t, func() bool {
		return gw.sub(65537) != nil && gw.sub(65538) != nil
	}, time.Second, 5*time.Millisecond)

	gw.mu.Lock()
	gw.devices = []int{65538}
	gw.mu.Unlock()

	require.NoError(t, b.sync(ctx))
	states := b.States()
	assert.Len(t, states, 1)
	assert.Contains(t, states, 65538)

	require.Eventually(t, func() bool {
		select {
		case <-gw.sub(65537).Done():
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "removed device's observation is cancelled")
}

func TestBridgeForwardsSetRequests(t *testing.T) {
	gw := newFakeGateway(map[int]string{65537: bulbJSON, 65538: socketJSON})
	mq := newFakeBroker()
	startBridge(t, gw, mq, nil)

	require.Eventually(t, func() bool {
		return len(mq.states("tradfri/device/65538/state")) == 1
	}, time.Second, 5*time.Millisecond)

	filter := "tradfri/device/+/set"
	mq.deliver(t, filter, "tradfri/device/65537/set", `{"on":true,"dimmer":200,"transition":10}`)
	mq.deliver(t, filter, "tradfri/device/65538/set", `{"on":true}`)
	mq.deliver(t, filter, "tradfri/device/65537/set", `{"3311":[{"5850":0}]}`)
	mq.deliver(t, filter, "tradfri/device/65537/set", `{"dimmer":999}`)
	mq.deliver(t, filter, "tradfri/device/x/set", `{"on":true}`)

	writes := gw.written()
	require.Len(t, writes, 3)

	assert.Equal(t, []string{"15001", "65537"}, writes[0].Path())
	assert.Equal(t, map[string]any{
		"3311": []any{map[string]any{"5850": 1, "5851": 200, "5712": 10}},
	}, writes[0].Payload())

	assert.Equal(t, []string{"15001", "65538"}, writes[1].Path())
	assert.Equal(t, map[string]any{"3312": []any{map[string]any{"5850": 1}}}, writes[1].Payload())

	assert.Equal(t, map[string]any{"3311": []any{map[string]any{"5850": 0.0}}}, writes[2].Payload())
}
