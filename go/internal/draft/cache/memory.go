package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// Memory is a process-local StateCache + AdmissionLock for development and
// tests. Lock TTL expiry is driven by the injected clock so tests can use a
// clockwork.FakeClock.
type Memory struct {
	clock   clockwork.Clock
	lockTTL time.Duration

	mu     sync.Mutex
	states map[uuid.UUID]models.DraftState
	locks  map[uuid.UUID]time.Time // holder's expiry
}

func NewMemory(clock clockwork.Clock, lockTTL time.Duration) *Memory {
	return &Memory{
		clock:   clock,
		lockTTL: lockTTL,
		states:  make(map[uuid.UUID]models.DraftState),
		locks:   make(map[uuid.UUID]time.Time),
	}
}

func (m *Memory) GetState(ctx context.Context, draftID uuid.UUID) (*models.DraftState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[draftID]
	if !ok {
		return nil, ErrMiss
	}
	s := state.Clone()
	return &s, nil
}

func (m *Memory) SetState(ctx context.Context, state *models.DraftState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.DraftID] = state.Clone()
	return nil
}

func (m *Memory) DeleteState(ctx context.Context, draftID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, draftID)
	return nil
}

func (m *Memory) TryAcquire(ctx context.Context, draftID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if expiry, held := m.locks[draftID]; held && now.Before(expiry) {
		return false, nil
	}
	m.locks[draftID] = now.Add(m.lockTTL)
	return true, nil
}

func (m *Memory) Release(ctx context.Context, draftID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, draftID)
	return nil
}
