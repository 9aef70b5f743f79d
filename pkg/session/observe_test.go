package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/transport"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

func ok(body string) *transport.Response {
	return &transport.Response{Code: wire.CodeContent, Body: []byte(body)}
}

func TestObserveRejectsNonPositiveDuration(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		dialer := &stubDialer{}
		s, err := New(Config{Host: "gw.test", Identity: "tester", PSK: "secret-key", Dialer: dialer})
		require.NoError(t, err)

		cmd := command.Fetch([]string{"15001", "65536"}, command.WithObserve(d))
		_, err = s.Observe(context.Background(), cmd, 0)
		assert.True(t, IsValidationError(err), "duration %v", d)

		_, err = s.Execute(context.Background(), cmd, 0)
		assert.True(t, IsValidationError(err))

		dialer.AssertNotCalled(t, "Dial", mock.Anything, mock.Anything)
		s.Close()
	}
}

func TestObserveRequiresObservingCommand(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.Observe(context.Background(), command.Fetch([]string{"15001"}), 0)
	assert.True(t, IsValidationError(err))
}

func TestObserveDeliversUpdates(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{"5850":0}`)
	s, _ := newTestSession(t, conn)

	updates := make(chan any, 4)
	var handlerCalls int
	cmd := command.Fetch([]string{"15001", "65537"},
		command.WithObserve(time.Minute),
		command.WithProcessor(func(raw any) any { return raw.(map[string]any)["5850"] }),
		command.WithUpdateHandler(func(c *command.Command) { updates <- c.Result() }),
		command.WithErrorHandler(func(error) { handlerCalls++ }),
	)

	obs, err := s.Observe(context.Background(), cmd, 0)
	require.NoError(t, err)
	assert.Equal(t, StateActive, obs.State())
	assert.Equal(t, float64(0), cmd.Result(), "first response is stored before Observe returns")
	assert.Equal(t, 1, s.Registry().Len())
	assert.Equal(t, []string{"15001/65537"}, conn.observed)

	conn.push(ok(`{"5850":1}`))
	conn.push(ok(`{"5850":0}`))

	for _, want := range []float64{1, 0} {
		select {
		case got := <-updates:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatal("update not delivered")
		}
	}

	obs.Cancel()
	waitDone(t, obs)
	assert.Equal(t, StateCancelled, obs.State())
	assert.NoError(t, obs.Err())
	assert.Equal(t, 0, handlerCalls)
	assert.Equal(t, 0, s.Registry().Len())
	assert.Equal(t, 1, conn.cancelCount())
}

func TestObserveEndsSilentlyAfterDuration(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{"9001":"Hall"}`)
	s, _ := newTestSession(t, conn)

	var handlerCalls int
	cmd := command.Fetch([]string{"15004", "131073"},
		command.WithObserve(50*time.Millisecond),
		command.WithErrorHandler(func(error) { handlerCalls++ }),
	)

	obs, err := s.Observe(context.Background(), cmd, 0)
	require.NoError(t, err)
	waitDone(t, obs)

	assert.Equal(t, StateEnded, obs.State())
	assert.NoError(t, obs.Err())
	assert.Equal(t, 0, handlerCalls)
	assert.Equal(t, 1, conn.cancelCount(), "upstream subscription is cancelled")
	assert.Equal(t, map[string]any{"9001": "Hall"}, cmd.Result())
}

func TestObserveMalformedUpdateFails(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{"5850":1}`)
	s, _ := newTestSession(t, conn)

	var mu sync.Mutex
	var failures []error
	cmd := command.Fetch([]string{"15001", "65537"},
		command.WithObserve(time.Minute),
		command.WithErrorHandler(func(err error) {
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
		}),
	)

	obs, err := s.Observe(context.Background(), cmd, 0)
	require.NoError(t, err)

	conn.push(ok(`{"5850":`))
	waitDone(t, obs)

	assert.Equal(t, StateFailed, obs.State())
	assert.ErrorIs(t, obs.Err(), ErrObservationStopped)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], ErrObservationStopped)
	assert.ErrorIs(t, failures[0], ErrProtocol)
	assert.Equal(t, map[string]any{"5850": float64(1)}, cmd.Result(), "result keeps the last good update")
}

func TestObserveConnectionDropFails(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{}`)
	s, _ := newTestSession(t, conn)

	failed := make(chan error, 1)
	cmd := command.Fetch([]string{"15001"},
		command.WithObserve(time.Minute),
		command.WithErrorHandler(func(err error) { failed <- err }),
	)

	obs, err := s.Observe(context.Background(), cmd, 0)
	require.NoError(t, err)

	conn.Close()

	select {
	case err := <-failed:
		assert.ErrorIs(t, err, ErrObservationStopped)
		assert.ErrorIs(t, err, transport.ErrConnectionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not invoked")
	}
	waitDone(t, obs)
	assert.Equal(t, StateFailed, obs.State())
	assert.Equal(t, 0, conn.cancelCount(), "no upstream cancel on a dead connection")
}

func TestObserveFailureWithoutHandlerIsDropped(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{}`)
	s, _ := newTestSession(t, conn)

	obs, err := s.Observe(context.Background(), command.Fetch([]string{"15001"}, command.WithObserve(time.Minute)), 0)
	require.NoError(t, err)

	conn.push(&transport.Response{Code: wire.CodeNotFound})
	waitDone(t, obs)
	assert.Equal(t, StateFailed, obs.State())
}

func TestObserveFirstResponseErrorIsSynchronous(t *testing.T) {
	conn := newFakeConn()
	conn.initial = &transport.Response{Code: wire.CodeNotFound}
	s, _ := newTestSession(t, conn)

	var handlerCalls int
	cmd := command.Fetch([]string{"15001", "1"},
		command.WithObserve(time.Minute),
		command.WithErrorHandler(func(error) { handlerCalls++ }),
	)

	_, err := s.Observe(context.Background(), cmd, 0)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, handlerCalls)
	assert.Equal(t, 0, s.Registry().Len())
	assert.Equal(t, 1, conn.cancelCount())
}

func TestObserveRejectedSubscriptionKeepsConnection(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{"5850":1}`)
	conn.rejected = map[string]*transport.Response{
		"15001/2": {Code: wire.CodeNotFound, Body: []byte("not found")},
	}
	s, d := newTestSession(t, conn)

	var failures []error
	live, err := s.Observe(context.Background(), command.Fetch([]string{"15001", "1"},
		command.WithObserve(time.Minute),
		command.WithErrorHandler(func(err error) { failures = append(failures, err) }),
	), 0)
	require.NoError(t, err)

	_, err = s.Observe(context.Background(), command.Fetch([]string{"15001", "2"}, command.WithObserve(time.Minute)), 0)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, KindClient, KindOf(err))
	assert.Contains(t, err.Error(), "not found")

	assert.False(t, conn.isClosed(), "a rejected subscription must not reset the connection")
	assert.Equal(t, StateActive, live.State())
	assert.Equal(t, 1, s.Registry().Len())
	d.AssertNumberOfCalls(t, "Dial", 1)

	live.Cancel()
	waitDone(t, live)
	assert.Equal(t, StateCancelled, live.State())
	assert.Empty(t, failures)
}

func TestObserveServerRejectionIsServerError(t *testing.T) {
	conn := newFakeConn()
	conn.rejected = map[string]*transport.Response{
		"15001/1": {Code: wire.CodeServiceUnavailable},
	}
	s, _ := newTestSession(t, conn)

	_, err := s.Observe(context.Background(), command.Fetch([]string{"15001", "1"}, command.WithObserve(time.Minute)), 0)
	assert.Equal(t, KindServer, KindOf(err))
	assert.ErrorIs(t, err, ErrServerError)
	assert.False(t, conn.isClosed())
}

func TestObserveDeclinedSubscriptionFails(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{"5850":1}`)
	conn.declined = true
	s, _ := newTestSession(t, conn)

	failed := make(chan error, 1)
	cmd := command.Fetch([]string{"15001", "1"},
		command.WithObserve(time.Hour),
		command.WithErrorHandler(func(err error) { failed <- err }),
	)

	obs, err := s.Observe(context.Background(), cmd, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"5850": float64(1)}, cmd.Result())

	select {
	case err := <-failed:
		assert.Equal(t, KindObservationStopped, KindOf(err))
		assert.ErrorIs(t, err, ErrObservationStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("declined subscription did not reach the error handler")
	}
	waitDone(t, obs)
	assert.Equal(t, StateFailed, obs.State())
	assert.Equal(t, 0, s.Registry().Len())
}

func TestObserveFirstResponseTimeout(t *testing.T) {
	first := newFakeConn()
	s, d := newTestSession(t, first)

	cmd := command.Fetch([]string{"15001"}, command.WithObserve(time.Minute))
	_, err := s.Observe(context.Background(), cmd, 30*time.Millisecond)
	assert.True(t, IsTimeout(err))
	assert.True(t, first.isClosed(), "timeout resets the connection")
	d.AssertNumberOfCalls(t, "Dial", 1)
}

func TestObserveContextCancel(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{}`)
	s, _ := newTestSession(t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	obs, err := s.Observe(ctx, command.Fetch([]string{"15001"}, command.WithObserve(time.Minute)), 0)
	require.NoError(t, err)

	cancel()
	waitDone(t, obs)
	assert.Equal(t, StateCancelled, obs.State())
}

func TestExecuteObservingCommandReturnsFirstResult(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{"9001":"Lamp"}`)
	s, _ := newTestSession(t, conn)

	got, err := s.Execute(context.Background(), command.Fetch([]string{"15001", "65536"}, command.WithObserve(time.Minute)), 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"9001": "Lamp"}, got)
	assert.Equal(t, 1, s.Registry().Len())
}

func TestCloseCancelsObservations(t *testing.T) {
	conn := newFakeConn()
	conn.initial = ok(`{}`)
	s, _ := newTestSession(t, conn)

	var handles []*Observation
	for _, id := range []string{"65536", "65537", "65538"} {
		obs, err := s.Observe(context.Background(), command.Fetch([]string{"15001", id}, command.WithObserve(time.Minute)), 0)
		require.NoError(t, err)
		handles = append(handles, obs)
	}
	assert.Equal(t, 3, s.Registry().Len())

	require.NoError(t, s.Close())

	for _, obs := range handles {
		waitDone(t, obs)
		assert.Equal(t, StateCancelled, obs.State())
	}
	assert.Equal(t, 0, s.Registry().Len())
	assert.Equal(t, 3, conn.cancelCount())
	assert.True(t, conn.isClosed())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ACTIVE", StateActive.String())
	assert.False(t, StateActive.Terminal())
	assert.True(t, StateFailed.Terminal())
}
