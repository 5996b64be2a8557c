package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// Replay folds the append-only event log into the state the admission
// pipeline would have produced had every event been applied through Advance.
// Event timestamps stand in for the wall clock, so a replayed state is
// byte-for-byte identical to the snapshot written at admission time. Any
// divergence between a replayed state and a cached snapshot is a correctness
// bug, and callers treat the replayed state as authoritative.
func Replay(draftID uuid.UUID, cfg models.DraftConfig, events []models.DraftEvent) (models.DraftState, error) {
	state, err := Seed(draftID, cfg, seedTime(events))
	if err != nil {
		return models.DraftState{}, err
	}

	for _, ev := range events {
		state, err = apply(state, cfg, ev)
		if err != nil {
			return models.DraftState{}, fmt.Errorf("replay event %s (%s, overall %d): %w", ev.ID, ev.Type, ev.OverallPick, err)
		}
	}
	return state, nil
}

// ReplayFrom continues a replay from an existing snapshot, applying only the
// events recorded after it. Used on the recovery path when the hot cache is
// lost but a durable snapshot survives.
func ReplayFrom(snapshot models.DraftState, cfg models.DraftConfig, events []models.DraftEvent) (models.DraftState, error) {
	state := snapshot.Clone()
	var err error
	for _, ev := range events {
		state, err = apply(state, cfg, ev)
		if err != nil {
			return models.DraftState{}, fmt.Errorf("replay event %s (%s, overall %d): %w", ev.ID, ev.Type, ev.OverallPick, err)
		}
	}
	return state, nil
}

func apply(state models.DraftState, cfg models.DraftConfig, ev models.DraftEvent) (models.DraftState, error) {
	switch ev.Type {
	case models.DraftEventPick, models.DraftEventAutoPick:
		if ev.PlayerID == nil {
			return models.DraftState{}, fmt.Errorf("pick event has no player")
		}
		if ev.OverallPick != state.OverallPick {
			return models.DraftState{}, fmt.Errorf("event overall %d does not match state overall %d", ev.OverallPick, state.OverallPick)
		}
		return Advance(state, *ev.PlayerID, cfg, ev.Ts)

	case models.DraftEventUndo:
		return Retract(state, cfg, ev.Ts)

	case models.DraftEventPause:
		next := state.Clone()
		next.Status = models.DraftStatusPaused
		next.DeadlineAt = nil
		return next, nil

	case models.DraftEventResume:
		next := state.Clone()
		next.Status = models.DraftStatusInProgress
		deadline := ev.Ts.Add(cfg.PickDuration())
		next.DeadlineAt = &deadline
		return next, nil

	default:
		return models.DraftState{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// seedTime anchors the seed deadline to the first event so replayed
// deadlines line up with the ones computed at admission time. With an empty
// log the deadline is meaningless and the zero time is fine.
func seedTime(events []models.DraftEvent) time.Time {
	if len(events) > 0 {
		return events[0].Ts
	}
	return time.Time{}
}
