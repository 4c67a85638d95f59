package wsmarshaller

import (
	"encoding/json"

	"github.com/devconnect/realtime-service/internal/domain/event"
)

// WSEvent is a generic wrapper for WebSocket messages to provide consistent structure
type WSEvent struct {
	Event   string `json:"event"` // e.g., "chatMessage", "activeUsers"
	ID      string `json:"id"`
	SentAt  int64  `json:"sent_at"`
	Payload any    `json:"payload"`
}

// MarshalEvent prepares a domain event for WebSocket transmission.
func MarshalEvent(ev event.Eventer) ([]byte, error) {
	return json.Marshal(&WSEvent{
		Event:   string(ev.GetKind()),
		ID:      ev.GetID(),
		SentAt:  ev.GetOccurredAt(),
		Payload: ev.GetPayload(),
	})
}
