package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftState is the authoritative mutable record for one draft instance.
// It is mutated exactly once per admitted pick, inside the admission-lock
// critical section, and once per administrative pause/resume/undo.
//
// OverallPick is the 1-based global sequence number of the slot currently on
// the clock: (Round-1)*teamCount + PickIndex. The event admitted next carries
// this number, so admitted picks are strictly totally ordered with no gaps.
type DraftState struct {
	DraftID         uuid.UUID   `json:"draft_id"`
	Status          DraftStatus `json:"status"`
	Round           int         `json:"round"`      // 1-based
	PickIndex       int         `json:"pick_index"` // 1-based position within the round
	OnClockTeamID   uuid.UUID   `json:"on_clock_team_id"`
	DeadlineAt      *time.Time  `json:"deadline_at,omitempty"`
	PickedPlayerIDs []uuid.UUID `json:"picked_player_ids"`
	OverallPick     int         `json:"overall_pick"`
}

// HasPicked reports whether playerID has already been drafted in this draft.
func (s *DraftState) HasPicked(playerID uuid.UUID) bool {
	for _, id := range s.PickedPlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// Active reports whether the draft is accepting picks.
func (s *DraftState) Active() bool {
	return s.Status == DraftStatusInProgress
}

// Clone returns a deep copy so the pure advance/retract functions never
// alias the caller's picked-player slice.
func (s *DraftState) Clone() DraftState {
	next := *s
	if s.DeadlineAt != nil {
		t := *s.DeadlineAt
		next.DeadlineAt = &t
	}
	next.PickedPlayerIDs = make([]uuid.UUID, len(s.PickedPlayerIDs))
	copy(next.PickedPlayerIDs, s.PickedPlayerIDs)
	return next
}
