package draft

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// ErrPoolExhausted is returned by a strategy when no draftable players
// remain for the draft.
var ErrPoolExhausted = errors.New("no available players in draft pool")

// AutoPickStrategy chooses the player an expired team is forced to draft.
// The choice is advisory: the pick still goes through full admission and can
// lose the slot to a concurrent human pick.
type AutoPickStrategy interface {
	SelectPlayer(ctx context.Context, draftID uuid.UUID, state *models.DraftState) (uuid.UUID, error)
}

// PoolLister is the slice of the app a strategy needs.
type PoolLister interface {
	ListAvailablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error)
}

// RandomStrategy picks uniformly from the remaining pool.
type RandomStrategy struct {
	pool PoolLister
	mu   sync.Mutex // rng is not safe for concurrent workers
	rng  *rand.Rand
}

// NewRandomStrategy constructs a RandomStrategy with its own seed.
func NewRandomStrategy(pool PoolLister) *RandomStrategy {
	src := rand.NewSource(time.Now().UnixNano())
	return &RandomStrategy{
		pool: pool,
		rng:  rand.New(src),
	}
}

func (s *RandomStrategy) SelectPlayer(ctx context.Context, draftID uuid.UUID, state *models.DraftState) (uuid.UUID, error) {
	players, err := s.pool.ListAvailablePlayers(ctx, draftID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list available players: %w", err)
	}
	if len(players) == 0 {
		return uuid.Nil, ErrPoolExhausted
	}
	s.mu.Lock()
	i := s.rng.Intn(len(players))
	s.mu.Unlock()
	return players[i], nil
}
