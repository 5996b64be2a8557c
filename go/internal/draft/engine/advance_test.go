package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

func testConfig(teams, rounds int) models.DraftConfig {
	return models.DraftConfig{
		Rounds:         rounds,
		TimePerPickSec: 90,
		DraftOrder:     testOrder(teams),
	}
}

func TestSeed(t *testing.T) {
	cfg := testConfig(4, 15)
	draftID := uuid.New()
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)

	state, err := Seed(draftID, cfg, now)
	if err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	if state.Round != 1 || state.PickIndex != 1 {
		t.Errorf("seeded at round %d pick %d, want round 1 pick 1", state.Round, state.PickIndex)
	}
	if state.OnClockTeamID != cfg.DraftOrder[0] {
		t.Errorf("on clock = %s, want first team %s", state.OnClockTeamID, cfg.DraftOrder[0])
	}
	if state.OverallPick != 1 {
		t.Errorf("overall pick = %d, want 1", state.OverallPick)
	}
	if state.Status != models.DraftStatusInProgress {
		t.Errorf("status = %s, want %s", state.Status, models.DraftStatusInProgress)
	}
	wantDeadline := now.Add(90 * time.Second)
	if state.DeadlineAt == nil || !state.DeadlineAt.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", state.DeadlineAt, wantDeadline)
	}
}

func TestAdvanceWithinRound(t *testing.T) {
	cfg := testConfig(4, 15)
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)
	state, _ := Seed(uuid.New(), cfg, now)

	player := uuid.New()
	later := now.Add(30 * time.Second)
	next, err := Advance(state, player, cfg, later)
	if err != nil {
		t.Fatalf("Advance() failed: %v", err)
	}

	if next.Round != 1 || next.PickIndex != 2 {
		t.Errorf("advanced to round %d pick %d, want round 1 pick 2", next.Round, next.PickIndex)
	}
	if next.OverallPick != 2 {
		t.Errorf("overall pick = %d, want 2", next.OverallPick)
	}
	if next.OnClockTeamID != cfg.DraftOrder[1] {
		t.Errorf("on clock = %s, want second team %s", next.OnClockTeamID, cfg.DraftOrder[1])
	}
	if len(next.PickedPlayerIDs) != 1 || next.PickedPlayerIDs[0] != player {
		t.Errorf("picked players = %v, want [%s]", next.PickedPlayerIDs, player)
	}
	wantDeadline := later.Add(90 * time.Second)
	if next.DeadlineAt == nil || !next.DeadlineAt.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", next.DeadlineAt, wantDeadline)
	}

	// The input state is untouched.
	if len(state.PickedPlayerIDs) != 0 {
		t.Errorf("input state mutated: picked players = %v", state.PickedPlayerIDs)
	}
}

// The defining snake-draft property: the team with the last pick of round N
// also has the first pick of round N+1, picking back to back.
func TestAdvanceRoundRolloverBackToBack(t *testing.T) {
	cfg := testConfig(4, 15)
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)

	state := models.DraftState{
		DraftID:         uuid.New(),
		Status:          models.DraftStatusInProgress,
		Round:           1,
		PickIndex:       4,
		OnClockTeamID:   cfg.DraftOrder[3],
		PickedPlayerIDs: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
		OverallPick:     4,
	}

	next, err := Advance(state, uuid.New(), cfg, now)
	if err != nil {
		t.Fatalf("Advance() failed: %v", err)
	}

	if next.Round != 2 || next.PickIndex != 1 {
		t.Errorf("advanced to round %d pick %d, want round 2 pick 1", next.Round, next.PickIndex)
	}
	if next.OverallPick != 5 {
		t.Errorf("overall pick = %d, want 5", next.OverallPick)
	}
	// Round 2 is reversed, so the last team of round 1 is on the clock again.
	if next.OnClockTeamID != cfg.DraftOrder[3] {
		t.Errorf("on clock after rollover = %s, want last team %s picking back to back", next.OnClockTeamID, cfg.DraftOrder[3])
	}
}

func TestAdvanceCompletesPastFinalRound(t *testing.T) {
	cfg := testConfig(2, 2)
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)

	state, _ := Seed(uuid.New(), cfg, now)
	var err error
	for i := 0; i < 4; i++ {
		if state.Status != models.DraftStatusInProgress {
			t.Fatalf("draft completed after %d picks, want 4", i)
		}
		state, err = Advance(state, uuid.New(), cfg, now.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Advance() pick %d failed: %v", i+1, err)
		}
	}

	if state.Status != models.DraftStatusCompleted {
		t.Errorf("status = %s, want %s", state.Status, models.DraftStatusCompleted)
	}
	if state.OnClockTeamID != uuid.Nil {
		t.Errorf("completed draft still has team on clock: %s", state.OnClockTeamID)
	}
	if state.DeadlineAt != nil {
		t.Errorf("completed draft still has deadline: %v", state.DeadlineAt)
	}
	if len(state.PickedPlayerIDs) != 4 {
		t.Errorf("picked %d players, want 4", len(state.PickedPlayerIDs))
	}
}

func TestAdvanceOverallPickNeverGapsOrRepeats(t *testing.T) {
	cfg := testConfig(3, 5)
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)
	state, _ := Seed(uuid.New(), cfg, now)

	var err error
	for want := 1; want <= cfg.TotalPicks(); want++ {
		if state.OverallPick != want {
			t.Fatalf("slot %d has overall pick %d", want, state.OverallPick)
		}
		state, err = Advance(state, uuid.New(), cfg, now)
		if err != nil {
			t.Fatalf("Advance() failed at overall %d: %v", want, err)
		}
	}
}

func TestRetractInvertsAdvance(t *testing.T) {
	cfg := testConfig(4, 3)
	now := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)
	seed, _ := Seed(uuid.New(), cfg, now)

	// Walk forward a handful of picks, then retract each one and compare
	// against the recorded history.
	history := []models.DraftState{seed}
	state := seed
	var err error
	for i := 0; i < 6; i++ {
		state, err = Advance(state, uuid.New(), cfg, now.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Advance() failed: %v", err)
		}
		history = append(history, state)
	}

	for i := len(history) - 1; i > 0; i-- {
		state, err = Retract(state, cfg, now)
		if err != nil {
			t.Fatalf("Retract() failed at step %d: %v", i, err)
		}
		prev := history[i-1]
		if state.Round != prev.Round || state.PickIndex != prev.PickIndex ||
			state.OverallPick != prev.OverallPick || state.OnClockTeamID != prev.OnClockTeamID {
			t.Fatalf("retract step %d: got round=%d pick=%d overall=%d clock=%s, want round=%d pick=%d overall=%d clock=%s",
				i, state.Round, state.PickIndex, state.OverallPick, state.OnClockTeamID,
				prev.Round, prev.PickIndex, prev.OverallPick, prev.OnClockTeamID)
		}
		if len(state.PickedPlayerIDs) != len(prev.PickedPlayerIDs) {
			t.Fatalf("retract step %d: %d picked players, want %d", i, len(state.PickedPlayerIDs), len(prev.PickedPlayerIDs))
		}
	}

	if _, err := Retract(state, cfg, now); err == nil {
		t.Error("Retract() on a fresh draft expected error, got none")
	}
}
