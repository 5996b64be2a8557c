package draft

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/draft/repository"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
)

// Orchestrator watches pick deadlines and fires autopicks for teams that run
// out of time. It shares the App's admission path, so an autopick competes
// with late human picks under the same lock and loses cleanly if the human
// pick lands first.
type Orchestrator struct {
	app       *App
	strat     AutoPickStrategy
	batchSize int32 // how many due drafts to claim at once
	clock     Clock

	wakeCh     chan struct{}
	instanceID string // short ID for logging

	numWorkers int
	workCh     chan uuid.UUID

	// Track in-flight work to prevent duplicate processing
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

func NewOrchestrator(app *App, strat AutoPickStrategy, clock Clock, batchSize int32) *Orchestrator {
	numWorkers := 10
	return &Orchestrator{
		app:        app,
		strat:      strat,
		batchSize:  batchSize,
		clock:      clock,
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8],

		numWorkers: numWorkers,
		workCh:     make(chan uuid.UUID, numWorkers*2),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// AdmitPick forwards a pick through the app and wakes the scheduler, since a
// successful pick sets a new, possibly sooner deadline.
func (o *Orchestrator) AdmitPick(ctx context.Context, req PickRequest) (*models.DraftState, *Rejection, error) {
	state, rej, err := o.app.AdmitPick(ctx, req)
	if err == nil && rej == nil {
		o.wake()
	}
	return state, rej, err
}

// StartDraft starts a draft via the app and wakes the scheduler for the
// first deadline.
func (o *Orchestrator) StartDraft(ctx context.Context, draftID uuid.UUID) (*models.DraftState, error) {
	state, err := o.app.StartDraft(ctx, draftID)
	if err == nil {
		o.wake()
	}
	return state, err
}

// ResumeDraft resumes a draft via the app and wakes the scheduler.
func (o *Orchestrator) ResumeDraft(ctx context.Context, draftID uuid.UUID) (*models.DraftState, *Rejection, error) {
	state, rej, err := o.app.ResumeDraft(ctx, draftID)
	if err == nil && rej == nil {
		o.wake()
	}
	return state, rej, err
}

// UndoLastPick rolls back the most recent pick and wakes the scheduler for
// the reopened slot's deadline.
func (o *Orchestrator) UndoLastPick(ctx context.Context, draftID uuid.UUID) (*models.DraftState, *Rejection, error) {
	state, rej, err := o.app.UndoLastPick(ctx, draftID)
	if err == nil && rej == nil {
		o.wake()
	}
	return state, rej, err
}

// The remaining operations do not move deadlines; they pass straight through.

func (o *Orchestrator) CreateDraft(ctx context.Context, req repository.CreateDraftRequest) (*models.Draft, error) {
	return o.app.CreateDraft(ctx, req)
}

func (o *Orchestrator) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	return o.app.GetDraft(ctx, id)
}

func (o *Orchestrator) GetState(ctx context.Context, draftID uuid.UUID) (*models.DraftState, error) {
	return o.app.GetState(ctx, draftID)
}

func (o *Orchestrator) PauseDraft(ctx context.Context, draftID uuid.UUID, reason string) (*models.DraftState, *Rejection, error) {
	return o.app.PauseDraft(ctx, draftID, reason)
}

func (o *Orchestrator) SeedDraftPool(ctx context.Context, draftID uuid.UUID, playerIDs []uuid.UUID) error {
	return o.app.SeedDraftPool(ctx, draftID, playerIDs)
}

func (o *Orchestrator) ListAvailablePlayers(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error) {
	return o.app.ListAvailablePlayers(ctx, draftID)
}

func (o *Orchestrator) wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// RunScheduler loops until ctx is done, sleeping until the next deadline and
// dispatching due drafts to the worker pool.
func (o *Orchestrator) RunScheduler(ctx context.Context) error {
	log.Info().Str("instance", o.instanceID).Int("workers", o.numWorkers).Msg("scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}
	defer func() {
		cancelWorkers()
		close(o.workCh)
		wg.Wait()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	timer := o.clock.NewTimer(0)
	defer timer.Stop()

	const idlePollDuration = 5 * time.Second
	retryCount := 0
	const maxRetries = 3

	for {
		// Drain a stale wake signal so it cannot cause a spurious early
		// iteration later.
		select {
		case <-o.wakeCh:
		default:
		}

		nd, err := o.app.FetchNextDeadline(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// No drafts in progress; idle until woken or the poll fires.
				timer.Reset(idlePollDuration)
				select {
				case <-timer.Chan():
					continue
				case <-o.wakeCh:
					continue
				case <-ctx.Done():
					return nil
				}
			}

			retryCount++
			if retryCount <= maxRetries {
				log.Error().
					Err(err).
					Int("retry", retryCount).
					Str("instance", o.instanceID).
					Msg("error fetching next deadline, retrying")
				timer.Reset(time.Second * time.Duration(retryCount))
				select {
				case <-timer.Chan():
					continue
				case <-ctx.Done():
					return nil
				}
			}
			log.Error().Err(err).Str("instance", o.instanceID).Msg("error fetching next deadline after retries")
			return err
		}
		retryCount = 0

		if nd.Deadline == nil {
			// In-progress draft with no deadline should not happen; poll
			// rather than spin.
			log.Warn().
				Str("draft_id", nd.DraftID.String()).
				Str("instance", o.instanceID).
				Msg("in-progress draft has no deadline; polling again in 5s")
			timer.Reset(idlePollDuration)
			select {
			case <-timer.Chan():
				continue
			case <-o.wakeCh:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		// Fire only once the drift tolerance window has fully closed, so a
		// human pick arriving inside the window always beats the autopick.
		wait := nd.Deadline.Add(o.app.DriftTolerance()).Sub(o.clock.Now())
		if wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
			case <-o.wakeCh:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		due, err := o.app.FetchDraftsDueForPick(ctx, o.batchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", o.instanceID).Msg("error fetching due drafts")
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		for _, draftID := range due {
			o.inFlightMu.Lock()
			if o.inFlight[draftID] {
				o.inFlightMu.Unlock()
				continue
			}
			o.inFlight[draftID] = true
			o.inFlightMu.Unlock()

			select {
			case o.workCh <- draftID:
			case <-ctx.Done():
				o.inFlightMu.Lock()
				delete(o.inFlight, draftID)
				o.inFlightMu.Unlock()
				return nil
			}
		}
	}
}

// handleTimeout fires one autopick for a draft whose deadline expired.
func (o *Orchestrator) handleTimeout(ctx context.Context, draftID uuid.UUID) error {
	state, err := o.app.GetState(ctx, draftID)
	if err != nil {
		return err
	}
	if state == nil || !state.Active() {
		return nil
	}
	// A pick may have landed between the due query and now; only fire if the
	// current deadline is still past tolerance.
	if state.DeadlineAt == nil || !o.clock.Now().After(state.DeadlineAt.Add(o.app.DriftTolerance())) {
		return nil
	}

	playerID, err := o.strat.SelectPlayer(ctx, draftID, state)
	if err != nil {
		if errors.Is(err, ErrPoolExhausted) {
			log.Warn().Str("draft_id", draftID.String()).Msg("autopick fired with no available players")
			return nil
		}
		return err
	}

	log.Info().
		Str("draft_id", draftID.String()).
		Str("team_id", state.OnClockTeamID.String()).
		Str("player_id", playerID.String()).
		Int("overall_pick", state.OverallPick).
		Msg("firing autopick")

	_, rej, err := o.app.AdmitPick(ctx, PickRequest{
		DraftID:  draftID,
		TeamID:   state.OnClockTeamID,
		PlayerID: playerID,
		AutoPick: true,
	})
	if errors.Is(err, ErrStaleState) {
		// A concurrent pick invalidated our view; the next scheduler pass
		// re-evaluates from the reconstructed state.
		return nil
	}
	if err != nil {
		return err
	}
	if rej != nil {
		// A human pick won the race for this slot. Working as intended.
		log.Info().
			Str("draft_id", draftID.String()).
			Str("reason", string(rej.Reason)).
			Msg("autopick lost the slot")
		return nil
	}

	o.wake()
	return nil
}

func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case draftID, ok := <-o.workCh:
			if !ok {
				return
			}

			if err := o.handleTimeout(ctx, draftID); err != nil {
				log.Error().
					Err(err).
					Str("draft_id", draftID.String()).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("timeout handling failed")
			}

			o.inFlightMu.Lock()
			delete(o.inFlight, draftID)
			o.inFlightMu.Unlock()
		}
	}
}
