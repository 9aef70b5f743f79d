// Package session owns the connection to one gateway and turns Commands
// into CoAP exchanges.
//
// A Session dials lazily on first use with its PSK identity, executes
// request/response commands with a per-call timeout and classifies every
// failure into a Kind (timeout, client, server, protocol, transport,
// validation). Observing commands are handed to the session's Registry,
// which runs each subscription on its own goroutine until its duration
// elapses, it is cancelled, or the stream breaks.
//
// # Errors
//
// All failures are *Error values and match the package sentinels with
// errors.Is:
//
//	if errors.Is(err, session.ErrTimeout) {
//	    // retry
//	}
//
// Observation stream failures never surface from the call that started
// the observation; they are delivered to the command's error handler
// wrapped around ErrObservationStopped.
//
// # Provisioning
//
// A gateway only accepts the printed security code for the bootstrap
// identity. GeneratePSK trades the code for a key bound to a new
// identity and installs both on the session.
package session
