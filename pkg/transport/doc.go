// Package transport provides the CoAP over DTLS connection used to talk to
// a gateway.
//
// The transport layer handles:
//   - DTLS 1.2 handshakes authenticated by a pre-shared key
//   - Confirmable GET/PUT/POST exchanges with JSON payloads
//   - Observe (RFC 7641) subscriptions with cancellation
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      JSON payloads             │
//	├────────────────────────────────┤
//	│   CoAP (RFC 7252 / 7641)       │
//	├────────────────────────────────┤
//	│   DTLS 1.2 PSK (AES-128-CCM-8) │
//	├────────────────────────────────┤
//	│           UDP                  │
//	└────────────────────────────────┘
//
// Higher layers only see the Conn interface; the DTLS implementation is
// built on go-coap and pion/dtls and can be swapped for a fake in tests.
package transport
