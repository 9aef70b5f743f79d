package session

import (
	"context"
	"errors"
	"strings"

	"github.com/tradfri-go/tradfri/pkg/wire"
)

// Kind classifies a failure.
type Kind uint8

const (
	// KindTimeout means the exchange did not finish within its budget.
	KindTimeout Kind = iota + 1
	// KindClient means the gateway rejected the request (4.xx).
	KindClient
	// KindServer means the gateway failed to process a valid request (5.xx).
	KindServer
	// KindProtocol means the transport produced output that is not a
	// protocol payload, or an unparseable one.
	KindProtocol
	// KindTransport means the connection could not be established or broke.
	KindTransport
	// KindObservationStopped means a subscription ended before its duration.
	KindObservationStopped
	// KindValidation means the caller passed invalid input; no I/O happened.
	KindValidation
)

// String returns the kind name, also used as the metrics label.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	case KindObservationStopped:
		return "observation_stopped"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Kind. An *Error matches the sentinel of its kind.
var (
	ErrTimeout            = errors.New("request timed out")
	ErrClientError        = errors.New("gateway rejected request")
	ErrServerError        = errors.New("gateway failed to process request")
	ErrProtocol           = errors.New("protocol or configuration error")
	ErrTransport          = errors.New("transport error")
	ErrObservationStopped = errors.New("observation stopped")
	ErrValidation         = errors.New("invalid argument")

	ErrClosed = errors.New("session closed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindClient:
		return ErrClientError
	case KindServer:
		return ErrServerError
	case KindProtocol:
		return ErrProtocol
	case KindTransport:
		return ErrTransport
	case KindObservationStopped:
		return ErrObservationStopped
	case KindValidation:
		return ErrValidation
	default:
		return nil
	}
}

// Error is a classified session failure.
type Error struct {
	Kind Kind

	// Code is the response code, if a response was received.
	Code wire.Code

	// Op is the request verb (GET, PUT, POST) or operation name.
	Op string

	// Path is the resource path.
	Path string

	// Message is the gateway's response text or a description.
	Message string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Path != "" {
			b.WriteString(" ")
			b.WriteString(e.Path)
		}
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else if s := e.Kind.sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString("failed")
	}
	if e.Code != wire.CodeEmpty {
		b.WriteString(" (")
		b.WriteString(e.Code.String())
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsTimeout reports whether err is a timeout failure.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsClientError reports whether the gateway rejected the request.
func IsClientError(err error) bool { return errors.Is(err, ErrClientError) }

// IsServerError reports whether the gateway failed internally.
func IsServerError(err error) bool { return errors.Is(err, ErrServerError) }

// IsProtocolError reports whether err is a protocol or configuration failure.
func IsProtocolError(err error) bool { return errors.Is(err, ErrProtocol) }

// IsValidationError reports whether err was caused by invalid caller input.
func IsValidationError(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether the gateway answered 4.04.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == wire.CodeNotFound
}

func validationError(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

// classifyExchange maps a transport failure. rctx is the per-call context
// derived from parent. Caller cancellation is returned as the context
// error so it is not mistaken for a timeout.
func classifyExchange(parent, rctx context.Context, op, path string, err error) error {
	if errors.Is(err, context.Canceled) && errors.Is(parent.Err(), context.Canceled) {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(rctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: op, Path: path, Err: err}
	}
	return &Error{Kind: KindTransport, Op: op, Path: path, Err: err}
}

// classifyResponse maps a response to a result or a classified failure.
func classifyResponse(op, path string, code wire.Code, body []byte, parseJSON bool) (any, error) {
	if wire.HasDiagnostic(body) {
		return nil, &Error{
			Kind:    KindProtocol,
			Code:    code,
			Op:      op,
			Path:    path,
			Message: "DTLS library emitted debug output; use a build without debug tracing",
			Err:     wire.ErrDiagnosticOutput,
		}
	}

	switch {
	case code.IsClientError():
		return nil, &Error{Kind: KindClient, Code: code, Op: op, Path: path, Message: responseText(body)}
	case code.IsServerError():
		return nil, &Error{Kind: KindServer, Code: code, Op: op, Path: path, Message: responseText(body)}
	case !code.IsSuccess():
		return nil, &Error{Kind: KindProtocol, Code: code, Op: op, Path: path, Message: "unexpected response code"}
	}

	v, err := wire.DecodeBody(body, parseJSON)
	if err != nil {
		return nil, &Error{Kind: KindProtocol, Code: code, Op: op, Path: path, Err: err}
	}
	return v, nil
}

func responseText(body []byte) string {
	return strings.TrimSpace(string(body))
}
