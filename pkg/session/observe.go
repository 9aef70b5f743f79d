package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/log"
	"github.com/tradfri-go/tradfri/pkg/transport"
)

// State is the lifecycle state of an observation.
type State uint8

const (
	// StateStarting means the subscription was sent and the first
	// response is pending.
	StateStarting State = iota
	// StateActive means updates are being delivered.
	StateActive
	// StateEnded means the duration elapsed.
	StateEnded
	// StateFailed means the stream broke; the error handler was invoked.
	StateFailed
	// StateCancelled means the observation was cancelled by the caller.
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateActive:
		return "ACTIVE"
	case StateEnded:
		return "ENDED"
	case StateFailed:
		return "FAILED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s >= StateEnded
}

// updateBuffer bounds notifications queued between the receive goroutine
// and the observation goroutine.
const updateBuffer = 16

// Observation is a handle to a running subscription.
type Observation struct {
	id     uint64
	cmd    *command.Command
	path   string
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state State
	err   error
}

// Command returns the observing command. Its Result reflects the last update.
func (o *Observation) Command() *command.Command {
	return o.cmd
}

// Path returns the observed resource path.
func (o *Observation) Path() string {
	return o.path
}

// Cancel stops the observation. It does not wait; use Done for that.
// Safe to call from an update handler.
func (o *Observation) Cancel() {
	o.cancel()
}

// Done is closed once the observation has stopped and cleaned up.
func (o *Observation) Done() <-chan struct{} {
	return o.done
}

// State returns the current lifecycle state.
func (o *Observation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the failure that ended the observation, or nil.
func (o *Observation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

func (o *Observation) setState(state State, err error) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	old := o.state
	o.state = state
	o.err = err
	return old
}

// Registry tracks the live observations of a session.
type Registry struct {
	mu   sync.Mutex
	next uint64
	live map[uint64]*Observation
}

func newRegistry() *Registry {
	return &Registry{live: make(map[uint64]*Observation)}
}

func (r *Registry) add(o *Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	o.id = r.next
	r.live[o.id] = o
}

func (r *Registry) remove(o *Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, o.id)
}

// Len returns the number of live observations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Observations returns the live observations.
func (r *Registry) Observations() []*Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Observation, 0, len(r.live))
	for _, o := range r.live {
		out = append(out, o)
	}
	return out
}

// CancelAll cancels every live observation and waits for cleanup.
func (r *Registry) CancelAll() {
	obs := r.Observations()
	for _, o := range obs {
		o.Cancel()
	}
	for _, o := range obs {
		<-o.Done()
	}
}

// Observe starts the observation described by cmd and blocks until the
// first response has been stored on cmd. Cancelling ctx ends the
// observation. Failures before the first response are returned; later
// failures go to the command's error handler.
func (s *Session) Observe(ctx context.Context, cmd *command.Command, timeout time.Duration) (*Observation, error) {
	if cmd == nil || !cmd.Observe() {
		return nil, validationError("observe", "command is not an observation")
	}
	if cmd.ObserveDuration() <= 0 {
		return nil, &Error{Kind: KindValidation, Op: "observe", Path: cmd.PathString(),
			Message: "observation duration has to be greater than 0"}
	}
	timeout = s.timeout(timeout)

	s.credMu.RLock()
	conn, connID, err := s.connection(ctx, timeout)
	s.credMu.RUnlock()
	if err != nil {
		return nil, err
	}

	return s.startObservation(ctx, conn, connID, cmd, timeout)
}

func (s *Session) startObservation(ctx context.Context, conn transport.Conn, connID string, cmd *command.Command, timeout time.Duration) (*Observation, error) {
	path := cmd.PathString()
	octx, cancel := context.WithCancel(ctx)
	obs := &Observation{
		cmd:    cmd,
		path:   path,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateStarting,
	}

	updates := make(chan *transport.Response, updateBuffer)
	deliver := func(resp *transport.Response) {
		select {
		case updates <- resp:
		case <-octx.Done():
		}
	}

	s.logState(connID, log.StateEntityObservation, "", StateStarting.String(), path, "")

	sctx, scancel := context.WithTimeout(octx, timeout)
	defer scancel()

	handle, err := conn.Observe(sctx, path, deliver)
	if err != nil {
		cancel()
		var status *transport.StatusError
		if errors.As(err, &status) {
			s.logResponse(connID, log.MessageTypeResponse, path, status.Response, nil)
			_, err = classifyResponse("observe", path, status.Response.Code, status.Response.Body, cmd.ParseResponse())
			s.logError(log.LayerSession, connID, err, "observe "+path)
			return nil, err
		}
		err = classifyExchange(ctx, sctx, "observe", path, err)
		s.logError(log.LayerSession, connID, err, "observe "+path)
		if KindOf(err) != 0 {
			s.reset(conn, err.Error())
		}
		return nil, err
	}

	var first *transport.Response
	select {
	case first = <-updates:
	case <-sctx.Done():
		err = classifyExchange(ctx, sctx, "observe", path, sctx.Err())
	case <-conn.Done():
		err = &Error{Kind: KindTransport, Op: "observe", Path: path, Err: transport.ErrConnectionClosed}
	}
	if err != nil {
		s.cancelUpstream(conn, handle, timeout)
		cancel()
		s.logError(log.LayerSession, connID, err, "observe "+path)
		if KindOf(err) == KindTimeout {
			s.reset(conn, err.Error())
		}
		return nil, err
	}

	s.logResponse(connID, log.MessageTypeNotification, path, first, nil)
	raw, err := classifyResponse("observe", path, first.Code, first.Body, cmd.ParseResponse())
	if err != nil {
		s.cancelUpstream(conn, handle, timeout)
		cancel()
		s.logError(log.LayerSession, connID, err, "observe "+path)
		return nil, err
	}
	cmd.SetResult(raw)

	obs.setState(StateActive, nil)
	s.registry.add(obs)
	s.metrics.ObservationStarted()
	s.logState(connID, log.StateEntityObservation, StateStarting.String(), StateActive.String(), path, "")
	if s.logger != nil {
		s.logger.Debug("observation active", "path", path, "duration", cmd.ObserveDuration(), "conn_id", connID)
	}

	go s.runObservation(octx, obs, conn, connID, handle, updates, timeout)
	return obs, nil
}

func (s *Session) runObservation(ctx context.Context, obs *Observation, conn transport.Conn, connID string, handle transport.Observation, updates <-chan *transport.Response, timeout time.Duration) {
	cmd := obs.cmd
	final, reason := StateEnded, "duration elapsed"
	var failure error

	defer func() {
		s.cancelUpstream(conn, handle, timeout)
		obs.cancel()
		s.registry.remove(obs)
		s.metrics.ObservationFinished()
		obs.setState(final, failure)
		s.logState(connID, log.StateEntityObservation, StateActive.String(), final.String(), obs.path, reason)
		if final == StateFailed {
			s.deliverFailure(cmd, failure)
		}
		close(obs.done)
	}()

	if handle.Canceled() {
		final, reason = StateFailed, "subscription declined"
		failure = &Error{Kind: KindObservationStopped, Op: "observe", Path: obs.path, Message: "gateway declined the subscription"}
		return
	}

	timer := time.NewTimer(cmd.ObserveDuration())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return

		case <-ctx.Done():
			final, reason = StateCancelled, "cancelled"
			return

		case <-conn.Done():
			final, reason = StateFailed, "connection closed"
			failure = &Error{Kind: KindObservationStopped, Op: "observe", Path: obs.path, Err: transport.ErrConnectionClosed}
			return

		case resp := <-updates:
			s.metrics.Notification()
			s.logResponse(connID, log.MessageTypeNotification, obs.path, resp, nil)

			raw, err := classifyResponse("observe", obs.path, resp.Code, resp.Body, cmd.ParseResponse())
			if err != nil {
				final, reason = StateFailed, err.Error()
				failure = &Error{Kind: KindObservationStopped, Op: "observe", Path: obs.path, Err: err}
				return
			}
			cmd.SetResult(raw)
			if h := cmd.UpdateHandler(); h != nil {
				h(cmd)
			}
		}
	}
}

func (s *Session) deliverFailure(cmd *command.Command, err error) {
	if h := cmd.ErrorHandler(); h != nil {
		h(err)
		return
	}
	if s.logger != nil {
		s.logger.Debug("observation failure dropped, no error handler", "path", cmd.PathString(), "error", err)
	}
}

// cancelUpstream deregisters at the gateway unless the connection is gone.
func (s *Session) cancelUpstream(conn transport.Conn, handle transport.Observation, timeout time.Duration) {
	select {
	case <-conn.Done():
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := handle.Cancel(ctx); err != nil && s.logger != nil {
		s.logger.Debug("observation cancel failed", "error", err)
	}
}
