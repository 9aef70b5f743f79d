package api

import (
	"context"
	"time"

	"github.com/tradfri-go/tradfri/pkg/command"
	"github.com/tradfri-go/tradfri/pkg/session"
)

// DefaultAttempts is the total number of attempts made by the retry helpers.
const DefaultAttempts = 3

// RetryTimeout wraps fn so that timeout failures are retried until
// attempts calls have been made. Other failures and successes return
// immediately. After the last attempt the final timeout is returned
// unchanged. attempts below 1 means DefaultAttempts.
func RetryTimeout[T any](fn func(context.Context) (T, error), attempts int) func(context.Context) (T, error) {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	return func(ctx context.Context) (T, error) {
		var (
			res T
			err error
		)
		for attempt := 1; attempt <= attempts; attempt++ {
			res, err = fn(ctx)
			if err == nil || !session.IsTimeout(err) {
				return res, err
			}
			if ctx.Err() != nil {
				return res, err
			}
		}
		return res, err
	}
}

// WithRetry wraps exec so every command it executes retries timeouts.
// Both RequestAll and RequestAsync go through the wrapped executor, so
// each command in a batch gets its own budget.
func WithRetry(exec Executor, attempts int) Executor {
	return &retryExecutor{exec: exec, attempts: attempts}
}

type retryExecutor struct {
	exec     Executor
	attempts int
}

func (r *retryExecutor) Execute(ctx context.Context, cmd *command.Command, timeout time.Duration) (any, error) {
	return RetryTimeout(func(ctx context.Context) (any, error) {
		return r.exec.Execute(ctx, cmd, timeout)
	}, r.attempts)(ctx)
}

// Observe retries a timed-out start. Stream failures after the first
// response are not retried here.
func (r *retryExecutor) Observe(ctx context.Context, cmd *command.Command, timeout time.Duration) (*session.Observation, error) {
	obs, ok := r.exec.(Observer)
	if !ok {
		return nil, ErrObserveUnsupported
	}
	return RetryTimeout(func(ctx context.Context) (*session.Observation, error) {
		return obs.Observe(ctx, cmd, timeout)
	}, r.attempts)(ctx)
}

var _ Observer = (*retryExecutor)(nil)
