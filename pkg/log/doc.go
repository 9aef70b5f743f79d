// Package log provides structured protocol capture for gateway sessions.
//
// This package defines the Logger interface and Event types for recording
// every exchange a session performs: requests, responses, observation
// notifications, connection and observation state changes, and failures.
// It is separate from operational logging (slog); protocol capture produces a
// complete machine-readable trace for debugging a gateway conversation.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For field debugging: write to a binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/tradfri/session.tlog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(console, file)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events using integer keys, with a
// .tlog extension. Reader iterates them back, optionally filtered.
package log
