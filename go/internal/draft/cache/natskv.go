package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// KVConfig configures the JetStream key-value buckets backing the cache.
type KVConfig struct {
	StateBucket string
	LockBucket  string
	StateTTL    time.Duration // how long a hot snapshot survives untouched
	LockTTL     time.Duration // admission lock safety net
}

func DefaultKVConfig() KVConfig {
	return KVConfig{
		StateBucket: "draft-state",
		LockBucket:  "draft-locks",
		StateTTL:    time.Hour,
		LockTTL:     3 * time.Second,
	}
}

// KV backs the state cache and admission lock with two JetStream key-value
// buckets. Lock acquisition relies on Create, which succeeds only for the
// first writer of a key; the lock bucket's TTL reclaims keys left behind by
// a crashed holder.
type KV struct {
	states jetstream.KeyValue
	locks  jetstream.KeyValue
	cfg    KVConfig
}

func NewKV(ctx context.Context, js jetstream.JetStream, cfg KVConfig) (*KV, error) {
	states, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.StateBucket,
		Description: "hot draft state snapshots",
		TTL:         cfg.StateTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("create state bucket: %w", err)
	}

	locks, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.LockBucket,
		Description: "draft pick admission locks",
		TTL:         cfg.LockTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("create lock bucket: %w", err)
	}

	log.Info().
		Str("state_bucket", cfg.StateBucket).
		Str("lock_bucket", cfg.LockBucket).
		Dur("lock_ttl", cfg.LockTTL).
		Msg("draft cache buckets ready")

	return &KV{states: states, locks: locks, cfg: cfg}, nil
}

func (k *KV) GetState(ctx context.Context, draftID uuid.UUID) (*models.DraftState, error) {
	entry, err := k.states.Get(ctx, draftID.String())
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("get cached state: %w", err)
	}

	var state models.DraftState
	if err := json.Unmarshal(entry.Value(), &state); err != nil {
		// A corrupt entry degrades to the reconstruction path.
		log.Warn().Err(err).Str("draft_id", draftID.String()).Msg("corrupt cached draft state, treating as miss")
		return nil, ErrMiss
	}
	return &state, nil
}

func (k *KV) SetState(ctx context.Context, state *models.DraftState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal draft state: %w", err)
	}
	if _, err := k.states.Put(ctx, state.DraftID.String(), data); err != nil {
		return fmt.Errorf("put cached state: %w", err)
	}
	return nil
}

func (k *KV) DeleteState(ctx context.Context, draftID uuid.UUID) error {
	if err := k.states.Delete(ctx, draftID.String()); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete cached state: %w", err)
	}
	return nil
}

func (k *KV) TryAcquire(ctx context.Context, draftID uuid.UUID) (bool, error) {
	stamp := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	_, err := k.locks.Create(ctx, draftID.String(), stamp)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}
		return false, fmt.Errorf("acquire admission lock: %w", err)
	}
	return true, nil
}

func (k *KV) Release(ctx context.Context, draftID uuid.UUID) error {
	if err := k.locks.Purge(ctx, draftID.String()); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("release admission lock: %w", err)
	}
	return nil
}
