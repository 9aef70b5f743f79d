package connection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("manager already running")

// State is the state of a Manager.
type State uint8

const (
	// StateIdle means Run has not been called.
	StateIdle State = iota

	// StateSubscribing means a subscription is being started.
	StateSubscribing

	// StateActive means a subscription is running.
	StateActive

	// StateBackoff means the manager is waiting before the next attempt.
	StateBackoff

	// StateClosed means Run has returned.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSubscribing:
		return "SUBSCRIBING"
	case StateActive:
		return "ACTIVE"
	case StateBackoff:
		return "BACKOFF"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Subscription is a running stream. session.Observation satisfies it.
type Subscription interface {
	// Done is closed when the stream has stopped.
	Done() <-chan struct{}

	// Err returns the failure that stopped the stream, or nil for a clean end.
	Err() error
}

// SubscribeFunc starts one subscription. Cancelling ctx must stop it.
type SubscribeFunc func(ctx context.Context) (Subscription, error)

// Config configures a Manager.
type Config struct {
	// Name identifies the subscription in logs.
	Name string

	Backoff BackoffConfig

	// Logger receives lifecycle lines. Nil disables logging.
	Logger *slog.Logger
}

// Manager keeps a subscription alive until its context ends.
type Manager struct {
	mu sync.RWMutex

	state     State
	name      string
	backoff   *Backoff
	subscribe SubscribeFunc
	logger    *slog.Logger
	running   bool

	subscriptions int

	onStateChange  func(oldState, newState State)
	onSubscribed   func()
	onStopped      func(err error)
	onReconnecting func(attempt int, delay time.Duration)
}

// NewManager creates a manager for subscribe.
func NewManager(subscribe SubscribeFunc, cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		state:     StateIdle,
		name:      cfg.Name,
		backoff:   NewBackoff(cfg.Backoff),
		subscribe: subscribe,
		logger:    logger,
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscriptions returns how many subscriptions have been established.
func (m *Manager) Subscriptions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subscriptions
}

// BackoffAttempts returns the number of failed attempts since the last
// established subscription.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}

// Run subscribes and resubscribes until ctx ends. It always returns
// ctx.Err() unless called twice.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	defer m.setState(StateClosed)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.setState(StateSubscribing)
		sub, err := m.subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Debug("subscribe failed", "name", m.name, "error", err)
			if err := m.wait(ctx); err != nil {
				return err
			}
			continue
		}

		m.established()

		select {
		case <-ctx.Done():
			<-sub.Done()
			return ctx.Err()
		case <-sub.Done():
		}

		err = sub.Err()
		if cb := m.stoppedCallback(); cb != nil {
			cb(err)
		}
		if err == nil {
			m.logger.Debug("subscription ended, renewing", "name", m.name)
			continue
		}

		m.logger.Warn("subscription failed", "name", m.name, "error", err)
		if err := m.wait(ctx); err != nil {
			return err
		}
	}
}

func (m *Manager) established() {
	m.backoff.Reset()

	m.mu.Lock()
	m.subscriptions++
	cb := m.onSubscribed
	m.mu.Unlock()

	m.setState(StateActive)
	if cb != nil {
		cb()
	}
}

func (m *Manager) wait(ctx context.Context) error {
	m.setState(StateBackoff)

	m.mu.RLock()
	cb := m.onReconnecting
	m.mu.RUnlock()
	if cb != nil {
		cb(m.backoff.Attempts()+1, m.backoff.Current())
	}

	return m.backoff.Wait(ctx)
}

func (m *Manager) stoppedCallback() func(error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onStopped
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	old := m.state
	m.state = s
	cb := m.onStateChange
	m.mu.Unlock()

	if cb != nil && old != s {
		cb(old, s)
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnSubscribed sets a callback for each established subscription.
func (m *Manager) OnSubscribed(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSubscribed = fn
}

// OnStopped sets a callback for each stopped subscription. err is nil for
// a clean end.
func (m *Manager) OnStopped(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStopped = fn
}

// OnReconnecting sets a callback invoked before each backoff wait. delay
// is the base delay, without jitter.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}
