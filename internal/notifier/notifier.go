// Package notifier is the audit/notification sink boundary. The transition
// engine publishes one event per successful state change; delivery is
// best-effort and never blocks or fails the caller.
package notifier

import (
	"encoding/json"
	"time"

	"backend/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransitionEvent is the immutable record of one state change
type TransitionEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ActorID   uuid.UUID `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink accepts transition events. Implementations must not block.
type Sink interface {
	Publish(event TransitionEvent)
}

// HubSink broadcasts events to connected websocket clients
type HubSink struct {
	hub    *websocket.Hub
	logger *zap.Logger
}

func NewHubSink(hub *websocket.Hub, logger *zap.Logger) *HubSink {
	return &HubSink{hub: hub, logger: logger}
}

// Publish hands the event to the hub if it can take it immediately, otherwise
// drops it with a warning. Emission failure is logged, never surfaced.
func (s *HubSink) Publish(event TransitionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to encode transition event", zap.Error(err))
		return
	}

	select {
	case s.hub.Broadcast <- payload:
	default:
		s.logger.Warn("notification sink saturated, dropping event",
			zap.String("request_id", event.RequestID.String()),
			zap.String("new_status", event.NewStatus))
	}
}

// NopSink discards all events
type NopSink struct{}

func (NopSink) Publish(TransitionEvent) {}
