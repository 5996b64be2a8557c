package outbox

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Event is an outbox row on its way to the stream.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	DraftID   uuid.UUID       `json:"draft_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}
