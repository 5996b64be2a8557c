package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DraftEventType defines the type of a draft event.
type DraftEventType string

const (
	DraftEventPick     DraftEventType = "pick"
	DraftEventAutoPick DraftEventType = "autopick"
	DraftEventUndo     DraftEventType = "undo"
	DraftEventPause    DraftEventType = "pause"
	DraftEventResume   DraftEventType = "resume"
)

// IsPick reports whether the event type records an admitted player selection.
func (t DraftEventType) IsPick() bool {
	return t == DraftEventPick || t == DraftEventAutoPick
}

// DraftEvent is one row of the append-only draft log. Events are created
// once and never mutated; the log plus the draft config is sufficient to
// reconstruct DraftState when the cached snapshot is lost.
type DraftEvent struct {
	ID          uuid.UUID       `json:"id"`
	DraftID     uuid.UUID       `json:"draft_id"`
	Ts          time.Time       `json:"ts"`
	Type        DraftEventType  `json:"type"`
	TeamID      *uuid.UUID      `json:"team_id,omitempty"`
	PlayerID    *uuid.UUID      `json:"player_id,omitempty"` // nil for non-pick events
	Round       int             `json:"round"`
	OverallPick int             `json:"overall_pick"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}
