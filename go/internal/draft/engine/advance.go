package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// Seed builds the initial state for a draft transitioning from NOT_STARTED
// to IN_PROGRESS: round 1, pick 1, first team in the order on the clock,
// deadline one pick duration from now.
func Seed(draftID uuid.UUID, cfg models.DraftConfig, now time.Time) (models.DraftState, error) {
	if err := validateConfig(cfg); err != nil {
		return models.DraftState{}, err
	}

	deadline := now.Add(cfg.PickDuration())
	return models.DraftState{
		DraftID:         draftID,
		Status:          models.DraftStatusInProgress,
		Round:           1,
		PickIndex:       1,
		OnClockTeamID:   cfg.DraftOrder[0],
		DeadlineAt:      &deadline,
		PickedPlayerIDs: []uuid.UUID{},
		OverallPick:     1,
	}, nil
}

// Advance produces the state following an admitted pick: the player is
// appended, the pick pointer moves, the round rolls and flips direction when
// the pointer passes the last team, and a fresh deadline is computed from
// now. When the new round exceeds the configured total the state is marked
// COMPLETED instead of putting another team on the clock.
//
// Advance is pure given its inputs; now is supplied by the caller so the
// function stays deterministic.
func Advance(state models.DraftState, playerID uuid.UUID, cfg models.DraftConfig, now time.Time) (models.DraftState, error) {
	if err := validateConfig(cfg); err != nil {
		return models.DraftState{}, err
	}

	next := state.Clone()
	next.PickedPlayerIDs = append(next.PickedPlayerIDs, playerID)

	next.PickIndex++
	if next.PickIndex > cfg.TeamCount() {
		next.Round++
		next.PickIndex = 1
	}
	next.OverallPick = OverallPick(next.Round, next.PickIndex, cfg.TeamCount())

	if next.Round > cfg.Rounds {
		next.Status = models.DraftStatusCompleted
		next.OnClockTeamID = uuid.Nil
		next.DeadlineAt = nil
		return next, nil
	}

	onClock, err := OnClockTeam(next.Round, next.PickIndex, cfg.DraftOrder)
	if err != nil {
		return models.DraftState{}, err
	}
	next.OnClockTeamID = onClock

	deadline := now.Add(cfg.PickDuration())
	next.DeadlineAt = &deadline
	return next, nil
}

// Retract is the inverse of Advance, used when an administrative undo event
// rolls back the most recent pick. The on-clock team returns to the slot the
// retracted pick occupied and gets a fresh deadline.
func Retract(state models.DraftState, cfg models.DraftConfig, now time.Time) (models.DraftState, error) {
	if err := validateConfig(cfg); err != nil {
		return models.DraftState{}, err
	}
	if len(state.PickedPlayerIDs) == 0 {
		return models.DraftState{}, fmt.Errorf("no picks to retract for draft %s", state.DraftID)
	}

	prev := state.Clone()
	prev.PickedPlayerIDs = prev.PickedPlayerIDs[:len(prev.PickedPlayerIDs)-1]

	// Completed states sit one past the final round with PickIndex 1, so the
	// same inverse step reopens them.
	if prev.Status == models.DraftStatusCompleted {
		prev.Status = models.DraftStatusInProgress
	}

	if prev.PickIndex == 1 {
		if prev.Round <= 1 {
			return models.DraftState{}, fmt.Errorf("cannot retract past the first pick of draft %s", state.DraftID)
		}
		prev.Round--
		prev.PickIndex = cfg.TeamCount()
	} else {
		prev.PickIndex--
	}
	prev.OverallPick = OverallPick(prev.Round, prev.PickIndex, cfg.TeamCount())

	onClock, err := OnClockTeam(prev.Round, prev.PickIndex, cfg.DraftOrder)
	if err != nil {
		return models.DraftState{}, err
	}
	prev.OnClockTeamID = onClock

	deadline := now.Add(cfg.PickDuration())
	prev.DeadlineAt = &deadline
	return prev, nil
}

func validateConfig(cfg models.DraftConfig) error {
	if len(cfg.DraftOrder) == 0 {
		return fmt.Errorf("draft order is empty")
	}
	if cfg.Rounds <= 0 {
		return fmt.Errorf("rounds must be greater than 0")
	}
	if cfg.TimePerPickSec < 0 {
		return fmt.Errorf("time_per_pick_sec cannot be negative")
	}
	return nil
}
