package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/cache"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/engine"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/events"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/repository"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// Repository defines what the app layer needs from the durable store.
type Repository interface {
	CreateDraft(ctx context.Context, req repository.CreateDraftRequest) (*models.Draft, error)
	GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	GetDraftConfig(ctx context.Context, id uuid.UUID) (models.DraftConfig, error)
	SeedDraft(ctx context.Context, state models.DraftState, outbox []repository.OutboxInsert) error
	AppendEventAndSnapshot(ctx context.Context, ev models.DraftEvent, state models.DraftState, outbox []repository.OutboxInsert) error
	GetLatestSnapshot(ctx context.Context, draftID uuid.UUID) (*models.DraftState, int64, error)
	ListEventsAfter(ctx context.Context, draftID uuid.UUID, afterSeq int64) ([]models.DraftEvent, error)
	ListEvents(ctx context.Context, draftID uuid.UUID) ([]models.DraftEvent, error)
	SeedDraftPool(ctx context.Context, draftID uuid.UUID, playerIDs []uuid.UUID) error
	ListDraftPool(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error)
	FetchNextDeadline(ctx context.Context) (*repository.NextDeadline, error)
	FetchDraftsDueForPick(ctx context.Context, tolerance time.Duration, limit int32) ([]uuid.UUID, error)
}

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Config holds the tunables of the admission protocol. Both values exist as
// explicit configuration rather than hard-coded constants; the defaults
// match what the platform has always run with.
type Config struct {
	// DriftTolerance is the allowed overrun past a pick deadline, absorbing
	// clock skew and network delay between the deadline-setter and the
	// requester. Symmetric: it never advantages early or late requests
	// beyond the window.
	DriftTolerance time.Duration
}

func DefaultConfig() Config {
	return Config{DriftTolerance: 3 * time.Second}
}

// App owns the pick-admission protocol: lock → load → validate → advance →
// persist → unlock. DraftState is never mutated outside the lock-held
// critical section, which is what makes admitted picks strictly totally
// ordered per draft.
type App struct {
	repo  Repository
	cache cache.StateCache
	locks cache.AdmissionLock
	clock Clock
	cfg   Config
}

func NewApp(repo Repository, stateCache cache.StateCache, locks cache.AdmissionLock, clock Clock, cfg Config) *App {
	return &App{
		repo:  repo,
		cache: stateCache,
		locks: locks,
		clock: clock,
		cfg:   cfg,
	}
}

// CreateDraft registers a new draft in NOT_STARTED with its immutable config.
func (a *App) CreateDraft(ctx context.Context, req repository.CreateDraftRequest) (*models.Draft, error) {
	if req.ID == uuid.Nil {
		return nil, fmt.Errorf("id is required")
	}
	if req.Config.Rounds <= 0 {
		return nil, fmt.Errorf("rounds must be greater than 0")
	}
	if req.Config.TimePerPickSec <= 0 {
		return nil, fmt.Errorf("time_per_pick_sec must be greater than 0")
	}
	if len(req.Config.DraftOrder) == 0 {
		return nil, fmt.Errorf("draft_order is required")
	}

	draft, err := a.repo.CreateDraft(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	log.Info().
		Str("draft_id", draft.ID.String()).
		Int("teams", draft.Config.TeamCount()).
		Int("rounds", draft.Config.Rounds).
		Msg("created draft")
	return draft, nil
}

// GetDraft retrieves a draft by ID.
func (a *App) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	draft, err := a.repo.GetDraft(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return draft, nil
}

// AdmitPick runs one pick request through the full admission protocol.
//
// The three-way return mirrors the error taxonomy: a *Rejection is an
// expected logical outcome (wrong turn, deadline, duplicate, contention) the
// gateway maps to a client status; an error is a collaborator failure and
// means nothing was admitted. Exactly one caller can succeed per overall
// pick number.
func (a *App) AdmitPick(ctx context.Context, req PickRequest) (*models.DraftState, *Rejection, error) {
	acquired, err := a.locks.TryAcquire(ctx, req.DraftID)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire admission lock: %w", err)
	}
	if !acquired {
		return nil, reject(RejectAnotherPickInProgress, "another pick is in progress, retry shortly"), nil
	}
	// Released on every path; the lock TTL covers a crash in between.
	defer func() {
		if err := a.locks.Release(ctx, req.DraftID); err != nil {
			log.Warn().Err(err).Str("draft_id", req.DraftID.String()).Msg("failed to release admission lock, TTL will reclaim it")
		}
	}()

	cfg, err := a.repo.GetDraftConfig(ctx, req.DraftID)
	if err != nil {
		return nil, nil, fmt.Errorf("load draft config: %w", err)
	}

	state, err := a.loadState(ctx, req.DraftID, cfg)
	if err != nil {
		return nil, nil, err
	}

	now := a.clock.Now()
	if rej := ValidatePick(state, req, now, a.cfg.DriftTolerance); rej != nil {
		return nil, rej, nil
	}

	ev := a.buildPickEvent(state, req, now)
	next, err := engine.Advance(*state, req.PlayerID, cfg, now)
	if err != nil {
		return nil, nil, fmt.Errorf("advance draft state: %w", err)
	}

	outbox, err := a.pickOutbox(ev, next, cfg, now)
	if err != nil {
		return nil, nil, err
	}

	// Commit point: event append + snapshot + outbox in one transaction. If
	// this fails the pick was not admitted and the state is unchanged.
	if err := a.repo.AppendEventAndSnapshot(ctx, ev, next, outbox); err != nil {
		if errors.Is(err, repository.ErrDuplicateOverall) {
			// The durable log already holds a pick for this slot, so the
			// state we validated against was stale. Reconstruction wins:
			// drop the cached entry and make the caller retry.
			log.Warn().
				Str("draft_id", req.DraftID.String()).
				Int("overall_pick", ev.OverallPick).
				Msg("stale draft state detected at commit, invalidating cache")
			if derr := a.cache.DeleteState(ctx, req.DraftID); derr != nil {
				log.Warn().Err(derr).Str("draft_id", req.DraftID.String()).Msg("failed to invalidate stale cached state")
			}
			return nil, nil, ErrStaleState
		}
		return nil, nil, fmt.Errorf("commit pick: %w", err)
	}

	// The cache write is a best-effort mirror. A failure here is observable
	// but not fatal: the next reader reconstructs from the durable snapshot.
	if err := a.cache.SetState(ctx, &next); err != nil {
		log.Warn().Err(err).Str("draft_id", req.DraftID.String()).Msg("cache update failed after commit, next read will reconstruct")
	}

	log.Info().
		Str("draft_id", req.DraftID.String()).
		Str("team_id", req.TeamID.String()).
		Str("player_id", req.PlayerID.String()).
		Int("overall_pick", ev.OverallPick).
		Bool("auto_pick", req.AutoPick).
		Msg("pick admitted")

	return &next, nil, nil
}

// StartDraft transitions a draft from NOT_STARTED to IN_PROGRESS, seeding
// round 1 pick 1 with the first team in the order on the clock.
func (a *App) StartDraft(ctx context.Context, draftID uuid.UUID) (*models.DraftState, error) {
	draft, err := a.repo.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("draft not found: %w", err)
	}

	now := a.clock.Now()
	if draft.Status == models.DraftStatusInProgress {
		// Idempotent start: return the live state.
		return a.GetState(ctx, draftID)
	}
	if draft.Status != models.DraftStatusNotStarted {
		return nil, fmt.Errorf("cannot start draft with status %s", draft.Status)
	}
	if draft.ScheduledAt != nil && now.Before(*draft.ScheduledAt) {
		return nil, fmt.Errorf("draft is scheduled for %s and has not started yet", draft.ScheduledAt.Format(time.RFC3339))
	}

	state, err := engine.Seed(draftID, draft.Config, now)
	if err != nil {
		return nil, fmt.Errorf("seed draft state: %w", err)
	}

	startedPayload, err := json.Marshal(events.DraftStartedPayload{
		DraftID:     draftID.String(),
		StartedAt:   now,
		TotalRounds: draft.Config.Rounds,
		TotalPicks:  draft.Config.TotalPicks(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal DraftStarted payload: %w", err)
	}
	outbox := []repository.OutboxInsert{{EventType: events.TypeDraftStarted, Payload: startedPayload}}
	if ob, err := pickStartedInsert(state, draft.Config, now); err == nil {
		outbox = append(outbox, ob)
	} else {
		return nil, err
	}

	if err := a.repo.SeedDraft(ctx, state, outbox); err != nil {
		return nil, fmt.Errorf("seed draft: %w", err)
	}

	if err := a.cache.SetState(ctx, &state); err != nil {
		log.Warn().Err(err).Str("draft_id", draftID.String()).Msg("cache update failed after start")
	}

	log.Info().Str("draft_id", draftID.String()).Msg("draft started")
	return &state, nil
}

// PauseDraft pauses an in-progress draft. While paused every pick is
// rejected with DRAFT_NOT_ACTIVE.
func (a *App) PauseDraft(ctx context.Context, draftID uuid.UUID, reason string) (*models.DraftState, *Rejection, error) {
	return a.adminTransition(ctx, draftID, models.DraftEventPause, func(state *models.DraftState, cfg models.DraftConfig, now time.Time) (models.DraftState, []repository.OutboxInsert, error) {
		if state.Status != models.DraftStatusInProgress {
			return models.DraftState{}, nil, fmt.Errorf("cannot pause draft with status %s", state.Status)
		}
		next := state.Clone()
		next.Status = models.DraftStatusPaused
		next.DeadlineAt = nil

		payload, err := json.Marshal(events.DraftPausedPayload{DraftID: draftID.String(), PausedAt: now, Reason: reason})
		if err != nil {
			return models.DraftState{}, nil, fmt.Errorf("marshal DraftPaused payload: %w", err)
		}
		return next, []repository.OutboxInsert{{EventType: events.TypeDraftPaused, Payload: payload}}, nil
	})
}

// ResumeDraft resumes a paused draft and restarts the pick timer for the
// team that was on the clock.
func (a *App) ResumeDraft(ctx context.Context, draftID uuid.UUID) (*models.DraftState, *Rejection, error) {
	return a.adminTransition(ctx, draftID, models.DraftEventResume, func(state *models.DraftState, cfg models.DraftConfig, now time.Time) (models.DraftState, []repository.OutboxInsert, error) {
		if state.Status != models.DraftStatusPaused {
			return models.DraftState{}, nil, fmt.Errorf("cannot resume draft with status %s", state.Status)
		}
		next := state.Clone()
		next.Status = models.DraftStatusInProgress
		deadline := now.Add(cfg.PickDuration())
		next.DeadlineAt = &deadline

		payload, err := json.Marshal(events.DraftResumedPayload{DraftID: draftID.String(), ResumedAt: now})
		if err != nil {
			return models.DraftState{}, nil, fmt.Errorf("marshal DraftResumed payload: %w", err)
		}
		outbox := []repository.OutboxInsert{{EventType: events.TypeDraftResumed, Payload: payload}}
		ob, err := pickStartedInsert(next, cfg, now)
		if err != nil {
			return models.DraftState{}, nil, err
		}
		return next, append(outbox, ob), nil
	})
}

// UndoLastPick is the administrative rollback of the most recent pick. The
// slot reopens for the team that made it, with a fresh deadline.
func (a *App) UndoLastPick(ctx context.Context, draftID uuid.UUID) (*models.DraftState, *Rejection, error) {
	return a.adminTransition(ctx, draftID, models.DraftEventUndo, func(state *models.DraftState, cfg models.DraftConfig, now time.Time) (models.DraftState, []repository.OutboxInsert, error) {
		if state.Status != models.DraftStatusInProgress && state.Status != models.DraftStatusCompleted {
			return models.DraftState{}, nil, fmt.Errorf("cannot undo pick on draft with status %s", state.Status)
		}
		if len(state.PickedPlayerIDs) == 0 {
			return models.DraftState{}, nil, fmt.Errorf("draft %s has no picks to undo", draftID)
		}
		undone := state.PickedPlayerIDs[len(state.PickedPlayerIDs)-1]

		next, err := engine.Retract(*state, cfg, now)
		if err != nil {
			return models.DraftState{}, nil, err
		}

		payload, err := json.Marshal(events.PickUndonePayload{
			TeamID:      next.OnClockTeamID.String(),
			PlayerID:    undone.String(),
			OverallPick: next.OverallPick,
			UndoneAt:    now,
		})
		if err != nil {
			return models.DraftState{}, nil, fmt.Errorf("marshal PickUndone payload: %w", err)
		}
		return next, []repository.OutboxInsert{{EventType: events.TypePickUndone, Payload: payload}}, nil
	})
}

// adminTransition runs a pause/resume/undo through the same lock-guarded
// read-modify-write section the pick path uses; state is never mutated
// outside it.
func (a *App) adminTransition(
	ctx context.Context,
	draftID uuid.UUID,
	evType models.DraftEventType,
	fn func(state *models.DraftState, cfg models.DraftConfig, now time.Time) (models.DraftState, []repository.OutboxInsert, error),
) (*models.DraftState, *Rejection, error) {
	acquired, err := a.locks.TryAcquire(ctx, draftID)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire admission lock: %w", err)
	}
	if !acquired {
		return nil, reject(RejectAnotherPickInProgress, "another pick is in progress, retry shortly"), nil
	}
	defer func() {
		if err := a.locks.Release(ctx, draftID); err != nil {
			log.Warn().Err(err).Str("draft_id", draftID.String()).Msg("failed to release admission lock, TTL will reclaim it")
		}
	}()

	cfg, err := a.repo.GetDraftConfig(ctx, draftID)
	if err != nil {
		return nil, nil, fmt.Errorf("load draft config: %w", err)
	}
	state, err := a.loadState(ctx, draftID, cfg)
	if err != nil {
		return nil, nil, err
	}
	if state == nil {
		return nil, reject(RejectDraftNotActive, fmt.Sprintf("draft %s has not started", draftID)), nil
	}

	now := a.clock.Now()
	next, outbox, err := fn(state, cfg, now)
	if err != nil {
		return nil, nil, err
	}

	ev := models.DraftEvent{
		ID:          uuid.New(),
		DraftID:     draftID,
		Ts:          now,
		Type:        evType,
		Round:       state.Round,
		OverallPick: state.OverallPick,
	}
	if err := a.repo.AppendEventAndSnapshot(ctx, ev, next, outbox); err != nil {
		return nil, nil, fmt.Errorf("commit %s: %w", evType, err)
	}

	if err := a.cache.SetState(ctx, &next); err != nil {
		log.Warn().Err(err).Str("draft_id", draftID.String()).Msg("cache update failed after commit, next read will reconstruct")
	}

	log.Info().Str("draft_id", draftID.String()).Str("event", string(evType)).Msg("admin transition applied")
	return &next, nil, nil
}

// GetState returns the current draft state, from the hot cache when
// available and otherwise reconstructed from the durable store. Returns nil
// when the draft has no state yet (not started).
func (a *App) GetState(ctx context.Context, draftID uuid.UUID) (*models.DraftState, error) {
	cfg, err := a.repo.GetDraftConfig(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("load draft config: %w", err)
	}
	return a.loadState(ctx, draftID, cfg)
}

// loadState is the cache-first read path. A cache miss or any cache failure
// degrades to reconstruction from the durable store; we never skip
// validation because the cache was down.
func (a *App) loadState(ctx context.Context, draftID uuid.UUID, cfg models.DraftConfig) (*models.DraftState, error) {
	state, err := a.cache.GetState(ctx, draftID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Str("draft_id", draftID.String()).Msg("state cache unavailable, reconstructing from durable store")
	}
	return a.reconstruct(ctx, draftID, cfg)
}

// reconstruct rebuilds the state from the latest durable snapshot plus any
// events appended after it, repairing the cache on the way out. The result
// is identical to what the advancer would have produced with the cache
// intact; any discrepancy is a correctness bug.
func (a *App) reconstruct(ctx context.Context, draftID uuid.UUID, cfg models.DraftConfig) (*models.DraftState, error) {
	snapshot, lastSeq, err := a.repo.GetLatestSnapshot(ctx, draftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No snapshot: replay the whole log. An empty log means the
			// draft was never started.
			evs, lerr := a.repo.ListEvents(ctx, draftID)
			if lerr != nil {
				return nil, fmt.Errorf("list events for reconstruction: %w", lerr)
			}
			if len(evs) == 0 {
				return nil, nil
			}
			state, rerr := engine.Replay(draftID, cfg, evs)
			if rerr != nil {
				return nil, fmt.Errorf("replay event log: %w", rerr)
			}
			a.repairCache(ctx, &state)
			return &state, nil
		}
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}

	tail, err := a.repo.ListEventsAfter(ctx, draftID, lastSeq)
	if err != nil {
		return nil, fmt.Errorf("list events after snapshot: %w", err)
	}
	state, err := engine.ReplayFrom(*snapshot, cfg, tail)
	if err != nil {
		return nil, fmt.Errorf("replay events after snapshot: %w", err)
	}
	a.repairCache(ctx, &state)
	return &state, nil
}

func (a *App) repairCache(ctx context.Context, state *models.DraftState) {
	if err := a.cache.SetState(ctx, state); err != nil {
		log.Warn().Err(err).Str("draft_id", state.DraftID.String()).Msg("failed to repair state cache after reconstruction")
	}
}

// SeedDraftPool registers the draftable player pool for a draft.
func (a *App) SeedDraftPool(ctx context.Context, draftID uuid.UUID, playerIDs []uuid.UUID) error {
	if _, err := a.repo.GetDraft(ctx, draftID); err != nil {
		return fmt.Errorf("draft not found: %w", err)
	}
	if err := a.repo.SeedDraftPool(ctx, draftID, playerIDs); err != nil {
		return fmt.Errorf("failed to seed draft pool: %w", err)
	}
	return nil
}

// ListAvailablePlayers returns pool players not yet picked in this draft.
func (a *App) ListAvailablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error) {
	state, err := a.GetState(ctx, draftID)
	if err != nil {
		return nil, err
	}

	pool, err := a.repo.ListDraftPool(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft pool: %w", err)
	}
	if state == nil {
		return pool, nil
	}

	available := make([]uuid.UUID, 0, len(pool))
	for _, id := range pool {
		if !state.HasPicked(id) {
			available = append(available, id)
		}
	}
	return available, nil
}

// FetchNextDeadline retrieves the soonest deadline across in-progress drafts.
func (a *App) FetchNextDeadline(ctx context.Context) (*repository.NextDeadline, error) {
	return a.repo.FetchNextDeadline(ctx)
}

// FetchDraftsDueForPick retrieves drafts whose pick deadline has expired
// beyond the drift tolerance.
func (a *App) FetchDraftsDueForPick(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}
	return a.repo.FetchDraftsDueForPick(ctx, a.cfg.DriftTolerance, limit)
}

// DriftTolerance exposes the configured tolerance to collaborators that
// mirror deadline decisions (the scheduler).
func (a *App) DriftTolerance() time.Duration {
	return a.cfg.DriftTolerance
}

func (a *App) buildPickEvent(state *models.DraftState, req PickRequest, now time.Time) models.DraftEvent {
	teamID := req.TeamID
	playerID := req.PlayerID

	var metadata json.RawMessage
	if req.By != "" || req.ClientTimestamp != nil {
		meta := struct {
			By              string     `json:"by,omitempty"`
			ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`
		}{req.By, req.ClientTimestamp}
		if raw, err := json.Marshal(meta); err == nil {
			metadata = raw
		}
	}

	return models.DraftEvent{
		ID:          uuid.New(),
		DraftID:     req.DraftID,
		Ts:          now,
		Type:        req.EventType(),
		TeamID:      &teamID,
		PlayerID:    &playerID,
		Round:       state.Round,
		OverallPick: state.OverallPick,
		Metadata:    metadata,
	}
}

func (a *App) pickOutbox(ev models.DraftEvent, next models.DraftState, cfg models.DraftConfig, now time.Time) ([]repository.OutboxInsert, error) {
	madePayload, err := json.Marshal(events.PickMadePayload{
		EventID:     ev.ID.String(),
		TeamID:      ev.TeamID.String(),
		PlayerID:    ev.PlayerID.String(),
		Round:       ev.Round,
		Pick:        ev.OverallPick - (ev.Round-1)*cfg.TeamCount(),
		OverallPick: ev.OverallPick,
		AutoPick:    ev.Type == models.DraftEventAutoPick,
		MadeAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal PickMade payload: %w", err)
	}
	outbox := []repository.OutboxInsert{{EventType: events.TypePickMade, Payload: madePayload}}

	if next.Status == models.DraftStatusCompleted {
		completedPayload, err := json.Marshal(events.DraftCompletedPayload{
			DraftID:     next.DraftID.String(),
			CompletedAt: now,
			TotalPicks:  cfg.TotalPicks(),
		})
		if err != nil {
			return nil, fmt.Errorf("marshal DraftCompleted payload: %w", err)
		}
		return append(outbox, repository.OutboxInsert{EventType: events.TypeDraftCompleted, Payload: completedPayload}), nil
	}

	ob, err := pickStartedInsert(next, cfg, now)
	if err != nil {
		return nil, err
	}
	return append(outbox, ob), nil
}

func pickStartedInsert(state models.DraftState, cfg models.DraftConfig, now time.Time) (repository.OutboxInsert, error) {
	timeout := now
	if state.DeadlineAt != nil {
		timeout = *state.DeadlineAt
	}
	payload, err := json.Marshal(events.PickStartedPayload{
		TeamID:         state.OnClockTeamID.String(),
		Round:          state.Round,
		Pick:           state.PickIndex,
		OverallPick:    state.OverallPick,
		StartedAt:      now,
		TimeoutAt:      timeout,
		TimePerPickSec: cfg.TimePerPickSec,
	})
	if err != nil {
		return repository.OutboxInsert{}, fmt.Errorf("marshal PickStarted payload: %w", err)
	}
	return repository.OutboxInsert{EventType: events.TypePickStarted, Payload: payload}, nil
}
