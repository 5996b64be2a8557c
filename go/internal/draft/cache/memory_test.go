package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

func TestMemoryStateRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewMemory(clock, 3*time.Second)
	ctx := context.Background()

	draftID := uuid.New()
	if _, err := m.GetState(ctx, draftID); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}

	deadline := clock.Now().Add(90 * time.Second)
	state := &models.DraftState{
		DraftID:         draftID,
		Status:          models.DraftStatusInProgress,
		Round:           2,
		PickIndex:       3,
		OverallPick:     7,
		OnClockTeamID:   uuid.New(),
		DeadlineAt:      &deadline,
		PickedPlayerIDs: []uuid.UUID{uuid.New(), uuid.New()},
	}
	if err := m.SetState(ctx, state); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	got, err := m.GetState(ctx, draftID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if !reflect.DeepEqual(state, got) {
		t.Fatalf("got %+v, want %+v", got, state)
	}

	// The cache hands out copies, not aliases.
	got.PickedPlayerIDs[0] = uuid.New()
	again, err := m.GetState(ctx, draftID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if again.PickedPlayerIDs[0] == got.PickedPlayerIDs[0] {
		t.Fatal("cached state aliases caller slice")
	}

	if err := m.DeleteState(ctx, draftID); err != nil {
		t.Fatalf("DeleteState: %v", err)
	}
	if _, err := m.GetState(ctx, draftID); !errors.Is(err, ErrMiss) {
		t.Fatalf("err after delete = %v, want ErrMiss", err)
	}
}

func TestMemoryLockMutualExclusion(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewMemory(clock, 3*time.Second)
	ctx := context.Background()
	draftID := uuid.New()

	ok, err := m.TryAcquire(ctx, draftID)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = m.TryAcquire(ctx, draftID)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("lock acquired twice")
	}

	// An unrelated draft is not blocked.
	ok, err = m.TryAcquire(ctx, uuid.New())
	if err != nil || !ok {
		t.Fatalf("other draft acquire: ok=%v err=%v", ok, err)
	}

	if err := m.Release(ctx, draftID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, err = m.TryAcquire(ctx, draftID)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestMemoryLockTTLExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewMemory(clock, 3*time.Second)
	ctx := context.Background()
	draftID := uuid.New()

	if ok, _ := m.TryAcquire(ctx, draftID); !ok {
		t.Fatal("first acquire failed")
	}

	// Just before expiry the lock still holds.
	clock.Advance(3*time.Second - time.Millisecond)
	if ok, _ := m.TryAcquire(ctx, draftID); ok {
		t.Fatal("lock expired early")
	}

	// A crashed holder's lock is reclaimable once the TTL elapses.
	clock.Advance(time.Millisecond)
	if ok, _ := m.TryAcquire(ctx, draftID); !ok {
		t.Fatal("lock not reclaimable after TTL")
	}
}
