package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DiagnosticMarker is emitted by debug-instrumented DTLS client builds
// where a payload is expected.
const DiagnosticMarker = "decrypt_verify"

// Codec errors.
var (
	ErrDiagnosticOutput = errors.New("transport emitted diagnostic output instead of a payload")
	ErrMalformedBody    = errors.New("malformed response body")
	ErrInvalidPayload   = errors.New("payload is not JSON-encodable")
)

// EncodePayload encodes a request payload as UTF-8 JSON.
// A nil payload encodes to nil (a pure read or an empty submit).
func EncodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return data, nil
}

// DecodeBody classifies and decodes a response body.
//
// Empty (or whitespace-only) bodies yield nil with no error. Bodies containing
// DiagnosticMarker fail with ErrDiagnosticOutput. When parseJSON is false the
// trimmed text is returned as a string.
func DecodeBody(body []byte, parseJSON bool) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if HasDiagnostic(trimmed) {
		return nil, ErrDiagnosticOutput
	}

	if !parseJSON {
		return string(trimmed), nil
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return v, nil
}

// HasDiagnostic reports whether body carries DiagnosticMarker.
func HasDiagnostic(body []byte) bool {
	return bytes.Contains(body, []byte(DiagnosticMarker))
}

// JoinPath joins route segments into a resource path without a leading slash.
func JoinPath(segments []string) string {
	return strings.Join(segments, "/")
}

// URL builds the resource address for the given host and route segments.
func URL(host string, segments []string) string {
	return Scheme + "://" + host + ":" + strconv.Itoa(DefaultPort) + "/" + JoinPath(segments)
}
