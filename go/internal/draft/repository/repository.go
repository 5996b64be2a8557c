package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sqlc-dev/pqtype"

	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/models"
	"github.com/kpm34/college-football-fantasy-app-sub010/go/internal/sqlutil"
)

// ErrDuplicateOverall is returned when an event append collides with an
// already-admitted pick for the same slot. It means the state the caller
// validated against was stale.
var ErrDuplicateOverall = errors.New("pick already admitted for this overall pick number")

// Repository is the durable side of draft persistence: draft configuration,
// the append-only event log, state snapshots, the player pool, and the
// transactional outbox.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type CreateDraftRequest struct {
	ID          uuid.UUID          `json:"id"`
	LeagueID    uuid.UUID          `json:"league_id"`
	Config      models.DraftConfig `json:"config"`
	ScheduledAt *time.Time         `json:"scheduled_at,omitempty"`
}

// OutboxInsert is an event destined for the outbox, written in the same
// transaction as the durable state change it describes.
type OutboxInsert struct {
	EventType string
	Payload   json.RawMessage
}

func (r *Repository) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error) {
	configBytes, err := json.Marshal(req.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft config: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO drafts (id, league_id, status, config, scheduled_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, league_id, status, config, scheduled_at, started_at, completed_at, created_at, updated_at`,
		req.ID, req.LeagueID, models.DraftStatusNotStarted, configBytes, sqlutil.ToSqlTime(req.ScheduledAt),
	)
	draft, err := scanDraft(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	return draft, nil
}

func (r *Repository) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, league_id, status, config, scheduled_at, started_at, completed_at, created_at, updated_at
		FROM drafts WHERE id = $1`, id,
	)
	draft, err := scanDraft(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return draft, nil
}

func (r *Repository) GetDraftConfig(ctx context.Context, id uuid.UUID) (models.DraftConfig, error) {
	var configBytes []byte
	err := r.db.QueryRowContext(ctx, `SELECT config FROM drafts WHERE id = $1`, id).Scan(&configBytes)
	if err != nil {
		return models.DraftConfig{}, fmt.Errorf("failed to get draft config: %w", err)
	}

	var cfg models.DraftConfig
	if err := json.Unmarshal(configBytes, &cfg); err != nil {
		return models.DraftConfig{}, fmt.Errorf("failed to unmarshal draft config: %w", err)
	}
	return cfg, nil
}

// SeedDraft transitions a draft to IN_PROGRESS and writes the initial state
// snapshot plus outbox events in one transaction.
func (r *Repository) SeedDraft(ctx context.Context, state models.DraftState, outbox []OutboxInsert) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE drafts
			SET status = $2, started_at = NOW(), next_deadline = $3, updated_at = NOW()
			WHERE id = $1 AND status = $4`,
			state.DraftID, models.DraftStatusInProgress, sqlutil.ToSqlTime(state.DeadlineAt), models.DraftStatusNotStarted,
		)
		if err != nil {
			return fmt.Errorf("update draft status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("draft %s is not in %s", state.DraftID, models.DraftStatusNotStarted)
		}

		if err := insertSnapshot(ctx, tx, state, 0); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, state.DraftID, outbox)
	})
}

// AppendEventAndSnapshot is the commit point of pick admission: the event
// append, the snapshot, the drafts-row mirror, and the outbox rows all land
// in one transaction or not at all. A unique-index collision on the slot's
// overall pick number surfaces as ErrDuplicateOverall.
func (r *Repository) AppendEventAndSnapshot(ctx context.Context, ev models.DraftEvent, state models.DraftState, outbox []OutboxInsert) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		metadata := pqtype.NullRawMessage{}
		if len(ev.Metadata) > 0 {
			metadata = pqtype.NullRawMessage{RawMessage: ev.Metadata, Valid: true}
		}

		var seq int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO draft_events (id, draft_id, ts, event_type, team_id, player_id, round, overall_pick, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING seq`,
			ev.ID, ev.DraftID, ev.Ts, ev.Type,
			sqlutil.ToNullUUID(ev.TeamID), sqlutil.ToNullUUID(ev.PlayerID),
			ev.Round, ev.OverallPick, metadata,
		).Scan(&seq)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateOverall
			}
			return fmt.Errorf("append event: %w", err)
		}

		if err := insertSnapshot(ctx, tx, state, seq); err != nil {
			return err
		}

		var completedAt sql.NullTime
		if state.Status == models.DraftStatusCompleted {
			completedAt = sql.NullTime{Time: ev.Ts, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE drafts
			SET status = $2, next_deadline = $3, completed_at = COALESCE(completed_at, $4), updated_at = NOW()
			WHERE id = $1`,
			state.DraftID, state.Status, sqlutil.ToSqlTime(state.DeadlineAt), completedAt,
		); err != nil {
			return fmt.Errorf("mirror draft row: %w", err)
		}

		return insertOutbox(ctx, tx, state.DraftID, outbox)
	})
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, state models.DraftState, lastEventSeq int64) error {
	pickedBytes, err := json.Marshal(state.PickedPlayerIDs)
	if err != nil {
		return fmt.Errorf("marshal picked players: %w", err)
	}

	var onClock uuid.NullUUID
	if state.OnClockTeamID != uuid.Nil {
		onClock = uuid.NullUUID{UUID: state.OnClockTeamID, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO draft_states (draft_id, status, round, pick_index, on_clock_team_id, deadline_at, picked_player_ids, overall_pick, last_event_seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		state.DraftID, state.Status, state.Round, state.PickIndex,
		onClock, sqlutil.ToSqlTime(state.DeadlineAt), pickedBytes, state.OverallPick, lastEventSeq,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func insertOutbox(ctx context.Context, tx *sql.Tx, draftID uuid.UUID, outbox []OutboxInsert) error {
	for _, ob := range outbox {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO draft_outbox (draft_id, event_type, payload)
			VALUES ($1, $2, $3)`,
			draftID, ob.EventType, []byte(ob.Payload),
		); err != nil {
			return fmt.Errorf("insert outbox %s: %w", ob.EventType, err)
		}
	}
	return nil
}

// GetLatestSnapshot returns the most recent durable snapshot for a draft,
// plus the event sequence it covers. sql.ErrNoRows when none exists.
func (r *Repository) GetLatestSnapshot(ctx context.Context, draftID uuid.UUID) (*models.DraftState, int64, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT draft_id, status, round, pick_index, on_clock_team_id, deadline_at, picked_player_ids, overall_pick, last_event_seq
		FROM draft_states
		WHERE draft_id = $1
		ORDER BY id DESC
		LIMIT 1`, draftID,
	)

	var (
		state       models.DraftState
		onClock     uuid.NullUUID
		deadline    sql.NullTime
		pickedBytes []byte
		lastSeq     int64
	)
	if err := row.Scan(&state.DraftID, &state.Status, &state.Round, &state.PickIndex,
		&onClock, &deadline, &pickedBytes, &state.OverallPick, &lastSeq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	if onClock.Valid {
		state.OnClockTeamID = onClock.UUID
	}
	state.DeadlineAt = sqlutil.FromSqlTime(deadline)
	if err := json.Unmarshal(pickedBytes, &state.PickedPlayerIDs); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal picked players: %w", err)
	}
	if state.PickedPlayerIDs == nil {
		state.PickedPlayerIDs = []uuid.UUID{}
	}
	return &state, lastSeq, nil
}

// ListEventsAfter returns the draft's events with seq greater than afterSeq,
// in append order. Used to roll a snapshot forward during reconstruction.
func (r *Repository) ListEventsAfter(ctx context.Context, draftID uuid.UUID, afterSeq int64) ([]models.DraftEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, draft_id, ts, event_type, team_id, player_id, round, overall_pick, metadata
		FROM draft_events
		WHERE draft_id = $1 AND seq > $2
		ORDER BY seq`, draftID, afterSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.DraftEvent
	for rows.Next() {
		var (
			ev       models.DraftEvent
			teamID   uuid.NullUUID
			playerID uuid.NullUUID
			metadata pqtype.NullRawMessage
		)
		if err := rows.Scan(&ev.ID, &ev.DraftID, &ev.Ts, &ev.Type, &teamID, &playerID, &ev.Round, &ev.OverallPick, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.TeamID = sqlutil.FromNullUUID(teamID)
		ev.PlayerID = sqlutil.FromNullUUID(playerID)
		if metadata.Valid {
			ev.Metadata = metadata.RawMessage
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListEvents returns the draft's full event log in append order.
func (r *Repository) ListEvents(ctx context.Context, draftID uuid.UUID) ([]models.DraftEvent, error) {
	return r.ListEventsAfter(ctx, draftID, 0)
}

// SeedDraftPool registers the draftable players for a draft.
func (r *Repository) SeedDraftPool(ctx context.Context, draftID uuid.UUID, playerIDs []uuid.UUID) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		for _, playerID := range playerIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO draft_pool (draft_id, player_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, draftID, playerID,
			); err != nil {
				return fmt.Errorf("insert pool player: %w", err)
			}
		}
		return nil
	})
}

// ListDraftPool returns every player registered as draftable for the draft.
// Filtering out already-picked players is the caller's job; the picked set
// lives in DraftState, which honors undo events.
func (r *Repository) ListDraftPool(ctx context.Context, draftID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT player_id FROM draft_pool WHERE draft_id = $1`, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft pool: %w", err)
	}
	defer rows.Close()

	var players []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pool player: %w", err)
		}
		players = append(players, id)
	}
	return players, rows.Err()
}

type NextDeadline struct {
	DraftID  uuid.UUID  `json:"draft_id"`
	Deadline *time.Time `json:"deadline"`
}

// FetchNextDeadline returns the soonest pick deadline across all in-progress
// drafts. sql.ErrNoRows when no draft is in progress.
func (r *Repository) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, next_deadline
		FROM drafts
		WHERE status = $1
		ORDER BY next_deadline ASC NULLS LAST
		LIMIT 1`, models.DraftStatusInProgress,
	)

	var (
		nd       NextDeadline
		deadline sql.NullTime
	)
	if err := row.Scan(&nd.DraftID, &deadline); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	nd.Deadline = sqlutil.FromSqlTime(deadline)
	return &nd, nil
}

// FetchDraftsDueForPick returns in-progress drafts whose deadline has passed
// by more than the drift tolerance, oldest first.
func (r *Repository) FetchDraftsDueForPick(ctx context.Context, tolerance time.Duration, limit int32) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM drafts
		WHERE status = $1 AND next_deadline IS NOT NULL AND next_deadline + $2::interval < NOW()
		ORDER BY next_deadline
		LIMIT $3`, models.DraftStatusInProgress, fmt.Sprintf("%f seconds", tolerance.Seconds()), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due drafts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan due draft: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Outbox queries used by the listener.

type OutboxRow struct {
	ID        uuid.UUID
	DraftID   uuid.UUID
	EventType string
	Payload   json.RawMessage
}

func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxRow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, draft_id, event_type, payload FROM draft_outbox WHERE id = $1`, id,
	)
	var ob OutboxRow
	var payload []byte
	if err := row.Scan(&ob.ID, &ob.DraftID, &ob.EventType, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	ob.Payload = payload
	return &ob, nil
}

func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, draft_id, event_type, payload
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var ob OutboxRow
		var payload []byte
		if err := rows.Scan(&ob.ID, &ob.DraftID, &ob.EventType, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		ob.Payload = payload
		out = append(out, ob)
	}
	return out, rows.Err()
}

func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE draft_outbox SET sent_at = NOW() WHERE id = $1 AND sent_at IS NULL`, id,
	); err != nil {
		return fmt.Errorf("failed to mark outbox event sent: %w", err)
	}
	return nil
}

func scanDraft(row *sql.Row) (*models.Draft, error) {
	var (
		draft       models.Draft
		configBytes []byte
		scheduledAt sql.NullTime
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	if err := row.Scan(&draft.ID, &draft.LeagueID, &draft.Status, &configBytes,
		&scheduledAt, &startedAt, &completedAt, &draft.CreatedAt, &draft.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(configBytes, &draft.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft config: %w", err)
	}
	draft.ScheduledAt = sqlutil.FromSqlTime(scheduledAt)
	draft.StartedAt = sqlutil.FromSqlTime(startedAt)
	draft.CompletedAt = sqlutil.FromSqlTime(completedAt)
	return &draft, nil
}
