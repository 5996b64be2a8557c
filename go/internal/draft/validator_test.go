package draft

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

func validatorState(onClock uuid.UUID, deadline time.Time, picked ...uuid.UUID) *models.DraftState {
	return &models.DraftState{
		DraftID:         uuid.New(),
		Status:          models.DraftStatusInProgress,
		Round:           1,
		PickIndex:       1,
		OverallPick:     1,
		OnClockTeamID:   onClock,
		DeadlineAt:      &deadline,
		PickedPlayerIDs: picked,
	}
}

func TestValidatePickCheckOrder(t *testing.T) {
	team := uuid.New()
	otherTeam := uuid.New()
	player := uuid.New()
	now := time.Date(2025, 9, 1, 19, 0, 0, 0, time.UTC)
	tolerance := 3 * time.Second

	tests := []struct {
		name  string
		state *models.DraftState
		req   PickRequest
		now   time.Time
		want  RejectionReason // empty means admitted
	}{
		{
			name:  "admitted",
			state: validatorState(team, now.Add(time.Minute)),
			req:   PickRequest{TeamID: team, PlayerID: player},
			now:   now,
		},
		{
			name: "paused draft rejected before turn check",
			state: func() *models.DraftState {
				s := validatorState(team, now.Add(time.Minute))
				s.Status = models.DraftStatusPaused
				return s
			}(),
			// Wrong team too, but inactive status wins.
			req:  PickRequest{TeamID: otherTeam, PlayerID: player},
			now:  now,
			want: RejectDraftNotActive,
		},
		{
			name:  "nil state",
			state: nil,
			req:   PickRequest{TeamID: team, PlayerID: player},
			now:   now,
			want:  RejectDraftNotActive,
		},
		{
			name:  "wrong turn rejected before deadline check",
			state: validatorState(team, now.Add(-time.Minute)),
			req:   PickRequest{TeamID: otherTeam, PlayerID: player},
			now:   now,
			want:  RejectNotYourTurn,
		},
		{
			name:  "late pick",
			state: validatorState(team, now.Add(-tolerance-time.Millisecond)),
			req:   PickRequest{TeamID: team, PlayerID: player},
			now:   now,
			want:  RejectDeadlinePassed,
		},
		{
			name:  "exactly at tolerance is on time",
			state: validatorState(team, now.Add(-tolerance)),
			req:   PickRequest{TeamID: team, PlayerID: player},
			now:   now,
		},
		{
			name:  "deadline rejected before duplicate check",
			state: validatorState(team, now.Add(-time.Minute), player),
			req:   PickRequest{TeamID: team, PlayerID: player},
			now:   now,
			want:  RejectDeadlinePassed,
		},
		{
			name:  "duplicate player",
			state: validatorState(team, now.Add(time.Minute), player),
			req:   PickRequest{TeamID: team, PlayerID: player},
			now:   now,
			want:  RejectPlayerAlreadyPicked,
		},
		{
			name:  "autopick skips deadline only",
			state: validatorState(team, now.Add(-time.Hour)),
			req:   PickRequest{TeamID: team, PlayerID: player, AutoPick: true},
			now:   now,
		},
		{
			name:  "autopick still checks duplicates",
			state: validatorState(team, now.Add(-time.Hour), player),
			req:   PickRequest{TeamID: team, PlayerID: player, AutoPick: true},
			now:   now,
			want:  RejectPlayerAlreadyPicked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := ValidatePick(tt.state, tt.req, tt.now, tolerance)
			if tt.want == "" {
				if rej != nil {
					t.Fatalf("rejected with %s: %s", rej.Reason, rej.Message)
				}
				return
			}
			if rej == nil || rej.Reason != tt.want {
				t.Fatalf("rejection = %+v, want %s", rej, tt.want)
			}
		})
	}
}

func TestPickRequestEventType(t *testing.T) {
	if got := (PickRequest{}).EventType(); got != models.DraftEventPick {
		t.Fatalf("EventType = %s, want %s", got, models.DraftEventPick)
	}
	if got := (PickRequest{AutoPick: true}).EventType(); got != models.DraftEventAutoPick {
		t.Fatalf("EventType = %s, want %s", got, models.DraftEventAutoPick)
	}
}
