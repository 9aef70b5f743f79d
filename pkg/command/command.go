package command

import (
	"fmt"
	"sync"
	"time"

	"github.com/tradfri-go/tradfri/pkg/wire"
)

// Processor derives a result from a raw response value.
type Processor func(raw any) any

// ErrorHandler receives the failure that ended an observation.
type ErrorHandler func(err error)

// UpdateHandler is invoked with the command after each pushed observation update.
type UpdateHandler func(cmd *Command)

// Command is one protocol operation and its eventual result.
// It is safe for concurrent use; observations write results from their own goroutine.
type Command struct {
	mu sync.RWMutex

	method          wire.Method
	path            []string
	payload         any
	parseResponse   bool
	observe         bool
	observeDuration time.Duration

	processor     Processor
	errorHandler  ErrorHandler
	updateHandler UpdateHandler

	rawResult any
	result    any
}

// Option configures a Command at construction.
type Option func(*Command)

// WithPayload sets the request payload.
func WithPayload(payload any) Option {
	return func(c *Command) {
		c.payload = deepCopy(payload)
	}
}

// WithRawResponse disables JSON parsing of the response body.
func WithRawResponse() Option {
	return func(c *Command) {
		c.parseResponse = false
	}
}

// WithObserve turns the command into an observation lasting d.
func WithObserve(d time.Duration) Option {
	return func(c *Command) {
		c.observe = true
		c.observeDuration = d
	}
}

// WithProcessor sets the result processor.
func WithProcessor(p Processor) Option {
	return func(c *Command) {
		c.processor = p
	}
}

// WithErrorHandler sets the handler for observation failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Command) {
		c.errorHandler = h
	}
}

// WithUpdateHandler sets the callback for observation updates.
func WithUpdateHandler(h UpdateHandler) Option {
	return func(c *Command) {
		c.updateHandler = h
	}
}

// New creates a command. Nothing is validated here; an invalid path or
// payload fails when the command is executed.
func New(method wire.Method, path []string, opts ...Option) *Command {
	c := &Command{
		method:        method,
		path:          append([]string(nil), path...),
		parseResponse: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch creates a read command for path.
func Fetch(path []string, opts ...Option) *Command {
	return New(wire.MethodFetch, path, opts...)
}

// Replace creates a write command for path carrying payload.
func Replace(path []string, payload any, opts ...Option) *Command {
	return New(wire.MethodReplace, path, append([]Option{WithPayload(payload)}, opts...)...)
}

// Create creates a submit command for path carrying payload.
func Create(path []string, payload any, opts ...Option) *Command {
	return New(wire.MethodCreate, path, append([]Option{WithPayload(payload)}, opts...)...)
}

// Method returns the request method.
func (c *Command) Method() wire.Method {
	return c.method
}

// Path returns a copy of the route segments.
func (c *Command) Path() []string {
	return append([]string(nil), c.path...)
}

// PathString returns the route segments joined with "/".
func (c *Command) PathString() string {
	return wire.JoinPath(c.path)
}

// URL returns the resource address on host.
func (c *Command) URL(host string) string {
	return wire.URL(host, c.path)
}

// Payload returns a deep copy of the payload.
func (c *Command) Payload() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return deepCopy(c.payload)
}

// ParseResponse reports whether the response body is parsed as JSON.
func (c *Command) ParseResponse() bool {
	return c.parseResponse
}

// Observe reports whether the command is an observation.
func (c *Command) Observe() bool {
	return c.observe
}

// ObserveDuration returns how long an observation stays open.
func (c *Command) ObserveDuration() time.Duration {
	return c.observeDuration
}

// ErrorHandler returns the observation failure handler (may be nil).
func (c *Command) ErrorHandler() ErrorHandler {
	return c.errorHandler
}

// UpdateHandler returns the observation update callback (may be nil).
func (c *Command) UpdateHandler() UpdateHandler {
	return c.updateHandler
}

// SetResult stores raw as the raw result and the processed value as the
// result. It is the only way a result is assigned; the processor runs once
// per call.
func (c *Command) SetResult(raw any) {
	processed := raw
	if c.processor != nil {
		processed = c.processor(raw)
	}

	c.mu.Lock()
	c.rawResult = raw
	c.result = processed
	c.mu.Unlock()
}

// RawResult returns the last unprocessed value received.
func (c *Command) RawResult() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rawResult
}

// Result returns the processed result.
func (c *Command) Result() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// Compatible reports whether other targets the same method and path,
// which is what makes combining the two meaningful.
func (c *Command) Compatible(other *Command) bool {
	if other == nil || c.method != other.method || len(c.path) != len(other.path) {
		return false
	}
	for i := range c.path {
		if c.path[i] != other.path[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the command with a deep-copied payload.
// Results are shared as read-only snapshots: both the raw and the
// processed value refer to the source's values until SetResult replaces
// them on either command. Callbacks are shared.
func (c *Command) Clone() *Command {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Command{
		method:          c.method,
		path:            append([]string(nil), c.path...),
		payload:         deepCopy(c.payload),
		parseResponse:   c.parseResponse,
		observe:         c.observe,
		observeDuration: c.observeDuration,
		processor:       c.processor,
		errorHandler:    c.errorHandler,
		updateHandler:   c.updateHandler,
		rawResult:       c.rawResult,
		result:          c.result,
	}
}

// Combine returns a new command with other's payload merged into a copy of
// this command's payload. Neither input is modified. A nil other yields a
// plain copy.
func (c *Command) Combine(other *Command) *Command {
	combined := c.Clone()
	combined.MergeInPlace(other)
	return combined
}

// MergeInPlace merges other's payload into this command's payload.
// Only the receiver is modified. A nil other is a no-op.
func (c *Command) MergeInPlace(other *Command) {
	if other == nil {
		return
	}
	incoming := other.Payload()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = mergeValue(c.payload, incoming)
}

// String returns a diagnostic representation.
func (c *Command) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := fmt.Sprintf("<Command %s %s", c.method, wire.JoinPath(c.path))
	if c.payload != nil {
		s += fmt.Sprintf(" payload=%v", c.payload)
	}
	if c.observe {
		s += fmt.Sprintf(" observe=%s", c.observeDuration)
	}
	return s + ">"
}
