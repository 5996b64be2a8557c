package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

func pickEvent(state models.DraftState, playerID uuid.UUID, ts time.Time) models.DraftEvent {
	teamID := state.OnClockTeamID
	pid := playerID
	return models.DraftEvent{
		ID:          uuid.New(),
		DraftID:     state.DraftID,
		Ts:          ts,
		Type:        models.DraftEventPick,
		TeamID:      &teamID,
		PlayerID:    &pid,
		Round:       state.Round,
		OverallPick: state.OverallPick,
	}
}

func TestReplayMatchesAdvance(t *testing.T) {
	cfg := testConfig(4, 15)
	draftID := uuid.New()
	start := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)

	state, err := Seed(draftID, cfg, start)
	if err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	var log []models.DraftEvent
	ts := start
	for i := 0; i < 5; i++ {
		ts = ts.Add(45 * time.Second)
		ev := pickEvent(state, uuid.New(), ts)
		log = append(log, ev)
		state, err = Advance(state, *ev.PlayerID, cfg, ts)
		if err != nil {
			t.Fatalf("Advance() failed: %v", err)
		}
	}

	replayed, err := Replay(draftID, cfg, log)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}

	if !reflect.DeepEqual(replayed, state) {
		t.Errorf("replayed state diverged from advanced state:\n  replayed: %+v\n  advanced: %+v", replayed, state)
	}
}

func TestReplayFromSnapshot(t *testing.T) {
	cfg := testConfig(3, 4)
	draftID := uuid.New()
	start := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)

	state, _ := Seed(draftID, cfg, start)
	var log []models.DraftEvent
	ts := start
	var err error
	for i := 0; i < 7; i++ {
		ts = ts.Add(time.Minute)
		ev := pickEvent(state, uuid.New(), ts)
		log = append(log, ev)
		state, err = Advance(state, *ev.PlayerID, cfg, ts)
		if err != nil {
			t.Fatalf("Advance() failed: %v", err)
		}
	}

	// Snapshot after pick 3, replay the tail.
	snapshot, err := Replay(draftID, cfg, log[:3])
	if err != nil {
		t.Fatalf("Replay() of prefix failed: %v", err)
	}
	recovered, err := ReplayFrom(snapshot, cfg, log[3:])
	if err != nil {
		t.Fatalf("ReplayFrom() failed: %v", err)
	}

	if !reflect.DeepEqual(recovered, state) {
		t.Errorf("recovered state diverged:\n  recovered: %+v\n  expected:  %+v", recovered, state)
	}
}

func TestReplayPauseResumeUndo(t *testing.T) {
	cfg := testConfig(2, 3)
	draftID := uuid.New()
	start := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)

	state, _ := Seed(draftID, cfg, start)
	p1 := pickEvent(state, uuid.New(), start.Add(time.Minute))

	pause := models.DraftEvent{ID: uuid.New(), DraftID: draftID, Ts: start.Add(2 * time.Minute), Type: models.DraftEventPause}
	resume := models.DraftEvent{ID: uuid.New(), DraftID: draftID, Ts: start.Add(10 * time.Minute), Type: models.DraftEventResume}
	undo := models.DraftEvent{ID: uuid.New(), DraftID: draftID, Ts: start.Add(11 * time.Minute), Type: models.DraftEventUndo}

	paused, err := Replay(draftID, cfg, []models.DraftEvent{p1, pause})
	if err != nil {
		t.Fatalf("Replay() through pause failed: %v", err)
	}
	if paused.Status != models.DraftStatusPaused {
		t.Errorf("status = %s, want %s", paused.Status, models.DraftStatusPaused)
	}
	if paused.DeadlineAt != nil {
		t.Errorf("paused draft still has deadline %v", paused.DeadlineAt)
	}

	resumed, err := Replay(draftID, cfg, []models.DraftEvent{p1, pause, resume})
	if err != nil {
		t.Fatalf("Replay() through resume failed: %v", err)
	}
	if resumed.Status != models.DraftStatusInProgress {
		t.Errorf("status = %s, want %s", resumed.Status, models.DraftStatusInProgress)
	}
	wantDeadline := resume.Ts.Add(cfg.PickDuration())
	if resumed.DeadlineAt == nil || !resumed.DeadlineAt.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", resumed.DeadlineAt, wantDeadline)
	}

	rewound, err := Replay(draftID, cfg, []models.DraftEvent{p1, pause, resume, undo})
	if err != nil {
		t.Fatalf("Replay() through undo failed: %v", err)
	}
	if rewound.OverallPick != 1 || len(rewound.PickedPlayerIDs) != 0 {
		t.Errorf("undo left overall=%d picked=%d, want overall=1 picked=0", rewound.OverallPick, len(rewound.PickedPlayerIDs))
	}
}

func TestReplayRejectsOutOfOrderEvents(t *testing.T) {
	cfg := testConfig(2, 3)
	draftID := uuid.New()
	start := time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC)

	state, _ := Seed(draftID, cfg, start)
	ev := pickEvent(state, uuid.New(), start.Add(time.Minute))
	ev.OverallPick = 3 // gap

	if _, err := Replay(draftID, cfg, []models.DraftEvent{ev}); err == nil {
		t.Error("Replay() with a gapped overall pick expected error, got none")
	}
}
