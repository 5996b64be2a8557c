package events

import (
	"time"
)

// Event payload types shared between the draft core and the gateway.

// Outbox event type names.
const (
	TypeDraftStarted   = "DraftStarted"
	TypeDraftPaused    = "DraftPaused"
	TypeDraftResumed   = "DraftResumed"
	TypeDraftCompleted = "DraftCompleted"
	TypePickMade       = "PickMade"
	TypePickStarted    = "PickStarted"
	TypePickUndone     = "PickUndone"
)

// PickStartedPayload is emitted when a pick timer begins.
type PickStartedPayload struct {
	TeamID         string    `json:"team_id"`
	Round          int       `json:"round"`
	Pick           int       `json:"pick"`
	OverallPick    int       `json:"overall_pick"`
	StartedAt      time.Time `json:"started_at"`
	TimeoutAt      time.Time `json:"timeout_at"`
	TimePerPickSec int       `json:"time_per_pick_sec"`
}

// PickMadePayload is emitted when a pick is admitted.
type PickMadePayload struct {
	EventID     string    `json:"event_id"`
	TeamID      string    `json:"team_id"`
	PlayerID    string    `json:"player_id"`
	Round       int       `json:"round"`
	Pick        int       `json:"pick"`
	OverallPick int       `json:"overall_pick"`
	AutoPick    bool      `json:"auto_pick"`
	MadeAt      time.Time `json:"made_at"`
}

// PickUndonePayload is emitted when an administrative undo rolls back the
// most recent pick.
type PickUndonePayload struct {
	TeamID      string    `json:"team_id"`
	PlayerID    string    `json:"player_id"`
	OverallPick int       `json:"overall_pick"`
	UndoneAt    time.Time `json:"undone_at"`
}

// DraftStartedPayload is emitted when a draft begins.
type DraftStartedPayload struct {
	DraftID     string    `json:"draft_id"`
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftCompletedPayload is emitted when the final pick is admitted.
type DraftCompletedPayload struct {
	DraftID     string    `json:"draft_id"`
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftPausedPayload is emitted when a draft is paused.
type DraftPausedPayload struct {
	DraftID  string    `json:"draft_id"`
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason"`
}

// DraftResumedPayload is emitted when a paused draft resumes.
type DraftResumedPayload struct {
	DraftID   string    `json:"draft_id"`
	ResumedAt time.Time `json:"resumed_at"`
}
