package session

import (
	"time"

	"github.com/tradfri-go/tradfri/pkg/log"
	"github.com/tradfri-go/tradfri/pkg/transport"
	"github.com/tradfri-go/tradfri/pkg/wire"
)

func (s *Session) logRequest(connID string, method wire.Method, path string, payload []byte) {
	if s.logger != nil {
		s.logger.Debug("sending request", "method", method.Verb(), "path", path, "conn_id", connID)
	}
	if s.protocolLogger == nil {
		return
	}

	text, truncated := log.CapturePayload(payload)
	s.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Host:         s.config.Host,
		Message: &log.MessageEvent{
			Type:      log.MessageTypeRequest,
			Method:    &method,
			Path:      path,
			Payload:   text,
			Truncated: truncated,
		},
	})
}

func (s *Session) logResponse(connID string, msgType log.MessageType, path string, resp *transport.Response, rtt *time.Duration) {
	if s.logger != nil {
		s.logger.Debug("received "+msgType.String(), "path", path, "code", resp.Code.String(), "conn_id", connID)
	}
	if s.protocolLogger == nil {
		return
	}

	code := resp.Code
	text, truncated := log.CapturePayload(resp.Body)
	s.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Host:         s.config.Host,
		Message: &log.MessageEvent{
			Type:      msgType,
			Path:      path,
			Code:      &code,
			Payload:   text,
			Truncated: truncated,
			RoundTrip: rtt,
		},
	})
}

func (s *Session) logState(connID string, entity log.StateEntity, oldState, newState, path, reason string) {
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		Host:         s.config.Host,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Path:     path,
			Reason:   reason,
		},
	})
}

func (s *Session) logError(layer log.Layer, connID string, err error, context string) {
	if s.logger != nil {
		s.logger.Debug("exchange failed", "context", context, "error", err)
	}
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        layer,
		Category:     log.CategoryError,
		Host:         s.config.Host,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Kind:    kindLabel(err),
			Context: context,
		},
	})
}
