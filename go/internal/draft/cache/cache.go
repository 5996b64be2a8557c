// Package cache provides the fast ephemeral side of draft persistence: the
// hot current-state snapshot and the short-TTL admission lock. Two
// implementations exist, NATS JetStream KV for deployment and an in-memory
// map for development and tests; both satisfy the same interfaces so the
// admission pipeline never knows which one it has.
package cache

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// ErrMiss is returned by StateCache.GetState when no entry exists. Callers
// degrade to the durable reconstruction path, never to skipping validation.
var ErrMiss = errors.New("draft state not in cache")

// StateCache holds the hot DraftState object keyed by draft id. A stale or
// missing entry is a performance problem, not a correctness one.
type StateCache interface {
	GetState(ctx context.Context, draftID uuid.UUID) (*models.DraftState, error)
	SetState(ctx context.Context, state *models.DraftState) error
	DeleteState(ctx context.Context, draftID uuid.UUID) error
}

// AdmissionLock is the per-draft mutual-exclusion token guarding the
// validate → advance → persist critical section. TryAcquire never blocks:
// a contended caller gets false immediately and decides whether to retry.
// The TTL configured at construction is the safety net against a crashed
// holder; Release is still called unconditionally on every exit path.
type AdmissionLock interface {
	TryAcquire(ctx context.Context, draftID uuid.UUID) (bool, error)
	Release(ctx context.Context, draftID uuid.UUID) error
}
