package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/session"
)

// ErrObserveUnsupported is returned by Observe when the executor cannot
// start observations.
var ErrObserveUnsupported = errors.New("executor does not support observations")

// Executor runs one command. A timeout of zero means the executor's default.
// Implemented by *session.Session.
type Executor interface {
	Execute(ctx context.Context, cmd *command.Command, timeout time.Duration) (any, error)
}

// Observer starts observations and returns their handles.
// Implemented by *session.Session.
type Observer interface {
	Observe(ctx context.Context, cmd *command.Command, timeout time.Duration) (*session.Observation, error)
}

var (
	_ Executor = (*session.Session)(nil)
	_ Observer = (*session.Session)(nil)
)

// Config configures an API.
type Config struct {
	// MaxConcurrent bounds in-flight commands in RequestAsync (default: 8).
	MaxConcurrent int

	// Logger receives dispatch diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 8}
}

// API dispatches commands to an Executor.
type API struct {
	exec   Executor
	config Config
}

// New creates an API over exec.
func New(exec Executor, config Config) *API {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	return &API{exec: exec, config: config}
}

// CallOption adjusts a single dispatch call.
type CallOption func(*callOptions)

type callOptions struct {
	timeout time.Duration
}

// WithTimeout overrides the executor's default timeout for this call only.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = d
	}
}

func resolve(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Request executes one command and returns its result. Errors are
// returned unmodified.
func (a *API) Request(ctx context.Context, cmd *command.Command, opts ...CallOption) (any, error) {
	o := resolve(opts)
	if a.config.Logger != nil && cmd != nil {
		a.config.Logger.Debug("dispatch", "command", cmd.String(), "timeout", o.timeout)
	}
	return a.exec.Execute(ctx, cmd, o.timeout)
}

// RequestAll executes cmds one after another in input order and returns
// their results in the same order. It stops at the first error.
func (a *API) RequestAll(ctx context.Context, cmds []*command.Command, opts ...CallOption) ([]any, error) {
	o := resolve(opts)
	results := make([]any, len(cmds))
	for i, cmd := range cmds {
		res, err := a.exec.Execute(ctx, cmd, o.timeout)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// RequestAsync schedules cmds concurrently, at most Config.MaxConcurrent
// at a time, and returns immediately. The first failure cancels the
// plain requests still in flight. Observing commands run under ctx so
// their observations outlive the batch.
func (a *API) RequestAsync(ctx context.Context, cmds []*command.Command, opts ...CallOption) *Pending {
	o := resolve(opts)
	p := &Pending{
		results: make([]any, len(cmds)),
		done:    make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.MaxConcurrent)

	go func() {
		defer close(p.done)
		for i, cmd := range cmds {
			i, cmd := i, cmd
			g.Go(func() error {
				cctx := gctx
				if cmd != nil && cmd.Observe() {
					cctx = ctx
				}
				res, err := a.exec.Execute(cctx, cmd, o.timeout)
				if err != nil {
					return err
				}
				p.results[i] = res
				return nil
			})
		}
		p.err = g.Wait()
		if p.err != nil && a.config.Logger != nil {
			a.config.Logger.Debug("async batch failed", "commands", len(cmds), "error", p.err)
		}
	}()
	return p
}

// Observe starts the observation described by cmd and returns its handle
// once the first response has arrived.
func (a *API) Observe(ctx context.Context, cmd *command.Command, opts ...CallOption) (*session.Observation, error) {
	obs, ok := a.exec.(Observer)
	if !ok {
		return nil, ErrObserveUnsupported
	}
	return obs.Observe(ctx, cmd, resolve(opts).timeout)
}

// Pending is the eventual outcome of RequestAsync.
type Pending struct {
	results []any
	err     error
	done    chan struct{}
}

// Done is closed when every scheduled command has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until all commands finish and returns their results in
// input order, or the first error.
func (p *Pending) Wait() ([]any, error) {
	<-p.done
	if p.err != nil {
		return nil, p.err
	}
	return p.results, nil
}
