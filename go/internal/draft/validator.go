package draft

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// PickRequest is an incoming request to admit one pick.
type PickRequest struct {
	DraftID  uuid.UUID `json:"draft_id"`
	TeamID   uuid.UUID `json:"team_id"`
	PlayerID uuid.UUID `json:"player_id"`
	// ClientTimestamp is the requester's clock reading, recorded in event
	// metadata for drift diagnosis. Validation uses the server clock only.
	ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`
	// By identifies the acting user for human picks, empty for autopicks.
	By string `json:"by,omitempty"`
	// AutoPick marks a pick issued by the timeout scheduler on the on-clock
	// team's behalf. Autopicks run because the deadline passed, so the
	// deadline check does not apply to them; every other check does.
	AutoPick bool `json:"-"`
}

// EventType returns the log event type this request produces when admitted.
func (r PickRequest) EventType() models.DraftEventType {
	if r.AutoPick {
		return models.DraftEventAutoPick
	}
	return models.DraftEventPick
}

// ValidatePick checks a pick request against the current state. The first
// failing check wins and later checks are not evaluated. A nil return means
// the pick is admissible. No side effects on failure; the caller decides
// whether to surface the rejection or fall back to an autopick, which passes
// through this same validator.
//
// driftTolerance absorbs clock skew between the deadline-setter and this
// request's arrival. It is symmetric: a request is on time iff
// now <= deadline + tolerance, regardless of how early it arrives.
func ValidatePick(state *models.DraftState, req PickRequest, now time.Time, driftTolerance time.Duration) *Rejection {
	if state == nil || !state.Active() {
		return reject(RejectDraftNotActive, fmt.Sprintf("draft %s is not accepting picks", req.DraftID))
	}

	if req.TeamID != state.OnClockTeamID {
		return reject(RejectNotYourTurn, fmt.Sprintf("team %s is on the clock, not %s", state.OnClockTeamID, req.TeamID))
	}

	if !req.AutoPick && state.DeadlineAt != nil {
		if now.After(state.DeadlineAt.Add(driftTolerance)) {
			return reject(RejectDeadlinePassed, fmt.Sprintf("pick deadline %s has passed", state.DeadlineAt.Format(time.RFC3339)))
		}
	}

	if state.HasPicked(req.PlayerID) {
		return reject(RejectPlayerAlreadyPicked, fmt.Sprintf("player %s has already been drafted", req.PlayerID))
	}

	return nil
}
