package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

func newOrchFixture(t *testing.T, teamCount, rounds int) (*fixture, *Orchestrator) {
	t.Helper()
	f := newFixture(t, teamCount, rounds)
	o := NewOrchestrator(f.app, NewRandomStrategy(f.app), f.clock, 10)
	return f, o
}

func TestHandleTimeoutFiresAutopick(t *testing.T) {
	f, o := newOrchFixture(t, 2, 2)
	f.start(t)

	f.clock.Advance(90*time.Second + f.app.DriftTolerance() + time.Second)
	if err := o.handleTimeout(context.Background(), f.draftID); err != nil {
		t.Fatalf("handleTimeout: %v", err)
	}

	state, err := f.app.GetState(context.Background(), f.draftID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.OverallPick != 2 {
		t.Fatalf("overall pick = %d, want 2", state.OverallPick)
	}

	evs, err := f.repo.ListEvents(context.Background(), f.draftID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if got := evs[len(evs)-1].Type; got != models.DraftEventAutoPick {
		t.Fatalf("event type = %s, want %s", got, models.DraftEventAutoPick)
	}
}

func TestHandleTimeoutSkipsWhenDeadlineStillOpen(t *testing.T) {
	f, o := newOrchFixture(t, 2, 2)
	f.start(t)

	// Inside the tolerance window nothing fires.
	f.clock.Advance(90 * time.Second)
	if err := o.handleTimeout(context.Background(), f.draftID); err != nil {
		t.Fatalf("handleTimeout: %v", err)
	}
	if n := f.repo.pickEventCount(f.draftID); n != 0 {
		t.Fatalf("pick events = %d, want 0", n)
	}
}

func TestHandleTimeoutSkipsAfterHumanPickLands(t *testing.T) {
	f, o := newOrchFixture(t, 2, 2)
	f.start(t)

	// The deadline passes, but a human pick lands before the worker runs.
	f.clock.Advance(90*time.Second + f.app.DriftTolerance() + time.Second)
	f.pickAuto(t)

	before := f.repo.pickEventCount(f.draftID)
	if err := o.handleTimeout(context.Background(), f.draftID); err != nil {
		t.Fatalf("handleTimeout: %v", err)
	}
	// The fresh deadline from the admitted pick is still open, so the
	// handler does not fire a second pick.
	if n := f.repo.pickEventCount(f.draftID); n != before {
		t.Fatalf("pick events = %d, want %d", n, before)
	}
}

func TestHandleTimeoutIgnoresPausedDraft(t *testing.T) {
	f, o := newOrchFixture(t, 2, 2)
	f.start(t)
	if _, rej, err := f.app.PauseDraft(context.Background(), f.draftID, "maintenance"); err != nil || rej != nil {
		t.Fatalf("PauseDraft: err=%v rej=%+v", err, rej)
	}

	f.clock.Advance(time.Hour)
	if err := o.handleTimeout(context.Background(), f.draftID); err != nil {
		t.Fatalf("handleTimeout: %v", err)
	}
	if n := f.repo.pickEventCount(f.draftID); n != 0 {
		t.Fatalf("pick events = %d, want 0", n)
	}
}

// pickAuto admits one forced pick for whichever team is on the clock.
func (f *fixture) pickAuto(t *testing.T) *models.DraftState {
	t.Helper()
	state, err := f.app.GetState(context.Background(), f.draftID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	var player uuid.UUID
	for _, id := range f.players {
		if !state.HasPicked(id) {
			player = id
			break
		}
	}
	next, rej, err := f.app.AdmitPick(context.Background(), PickRequest{
		DraftID: f.draftID, TeamID: state.OnClockTeamID, PlayerID: player, AutoPick: true,
	})
	if err != nil || rej != nil {
		t.Fatalf("pickAuto: err=%v rej=%+v", err, rej)
	}
	return next
}

func TestRandomStrategyErrPoolExhausted(t *testing.T) {
	f := newFixture(t, 2, 1)
	f.start(t)

	strat := NewRandomStrategy(emptyPool{})
	_, err := strat.SelectPlayer(context.Background(), f.draftID, nil)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("err = %v, want ErrPoolExhausted", err)
	}
}

type emptyPool struct{}

func (emptyPool) ListAvailablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}
