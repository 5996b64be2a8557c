package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus defines the status of a draft.
type DraftStatus string

const (
	DraftStatusNotStarted DraftStatus = "NOT_STARTED"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusPaused     DraftStatus = "PAUSED"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
	DraftStatusCancelled  DraftStatus = "CANCELLED"
)

// DraftConfig holds the immutable JSONB configuration a draft is created
// with. It is established before the draft starts and is never mutated by
// the engine.
type DraftConfig struct {
	Rounds         int         `json:"rounds"`
	TimePerPickSec int         `json:"time_per_pick_sec"`
	DraftOrder     []uuid.UUID `json:"draft_order"`
}

// TeamCount returns the number of teams in the draft order.
func (c DraftConfig) TeamCount() int {
	return len(c.DraftOrder)
}

// PickDuration returns the per-pick time limit as a duration.
func (c DraftConfig) PickDuration() time.Duration {
	return time.Duration(c.TimePerPickSec) * time.Second
}

// TotalPicks returns the total number of pick slots in the draft.
func (c DraftConfig) TotalPicks() int {
	return c.Rounds * len(c.DraftOrder)
}

// Draft represents a draft instance.
type Draft struct {
	ID          uuid.UUID   `json:"id"`
	LeagueID    uuid.UUID   `json:"league_id"`
	Status      DraftStatus `json:"status"`
	Config      DraftConfig `json:"config"`
	ScheduledAt *time.Time  `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
