// Package wire defines the protocol vocabulary shared by the gateway client.
//
// The gateway speaks CoAP over DTLS. This package holds the pieces of that
// protocol the rest of the module reasons about:
//
//   - Method: the request methods a Command can carry (fetch, replace, create)
//   - Code: CoAP response codes and their success/client/server classes
//   - Resource roots and attribute keys: the numeric strings the gateway uses
//     both as path segments and as JSON object keys
//   - Payload encoding and response body classification
//
// # Body Classification
//
// Response bodies are UTF-8 text. DecodeBody turns them into results:
//
//	v, err := wire.DecodeBody(body, true)  // JSON tree (map[string]any, []any, ...)
//	s, err := wire.DecodeBody(body, false) // raw string
//
// An empty body is an absent result, not an error. A body carrying the
// diagnostic marker of an instrumented transport build is rejected with
// ErrDiagnosticOutput so it is never mistaken for data.
package wire
