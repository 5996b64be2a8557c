package repository

import (
	"database/sql"
	"fmt"
)

// Migrate creates the draft schema if it does not exist. Statements are
// idempotent so startup can always run them.
func Migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS drafts (
			id UUID PRIMARY KEY,
			league_id UUID NOT NULL,
			status TEXT NOT NULL DEFAULT 'NOT_STARTED',
			config JSONB NOT NULL,
			next_deadline TIMESTAMPTZ,
			scheduled_at TIMESTAMPTZ,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_status_deadline ON drafts(status, next_deadline)`,

		// Append-only event log. seq gives a total order for replay; the
		// partial unique index makes a duplicate admission for the same slot
		// impossible to commit, which is how a stale cached state is caught.
		`CREATE TABLE IF NOT EXISTS draft_events (
			seq BIGSERIAL PRIMARY KEY,
			id UUID NOT NULL UNIQUE,
			draft_id UUID NOT NULL REFERENCES drafts(id),
			ts TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			team_id UUID,
			player_id UUID,
			round INTEGER NOT NULL,
			overall_pick INTEGER NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_draft_events_draft_seq ON draft_events(draft_id, seq)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_draft_events_one_pick_per_slot
			ON draft_events(draft_id, overall_pick)
			WHERE event_type IN ('pick', 'autopick')`,

		// Durable state snapshots, one appended per admitted pick or
		// administrative transition. The latest row is the recovery anchor.
		`CREATE TABLE IF NOT EXISTS draft_states (
			id BIGSERIAL PRIMARY KEY,
			draft_id UUID NOT NULL REFERENCES drafts(id),
			status TEXT NOT NULL,
			round INTEGER NOT NULL,
			pick_index INTEGER NOT NULL,
			on_clock_team_id UUID,
			deadline_at TIMESTAMPTZ,
			picked_player_ids JSONB NOT NULL,
			overall_pick INTEGER NOT NULL,
			last_event_seq BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_draft_states_draft_id ON draft_states(draft_id, id DESC)`,

		// Draftable player pool per draft.
		`CREATE TABLE IF NOT EXISTS draft_pool (
			draft_id UUID NOT NULL REFERENCES drafts(id),
			player_id UUID NOT NULL,
			PRIMARY KEY (draft_id, player_id)
		)`,

		// Transactional outbox; rows are written in the same transaction as
		// the event append and published to JetStream by the listener.
		`CREATE TABLE IF NOT EXISTS draft_outbox (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			draft_id UUID NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			sent_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_draft_outbox_unsent ON draft_outbox(created_at) WHERE sent_at IS NULL`,

		`CREATE OR REPLACE FUNCTION notify_draft_outbox() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('draft_outbox_events', NEW.id::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS draft_outbox_notify ON draft_outbox`,
		`CREATE TRIGGER draft_outbox_notify AFTER INSERT ON draft_outbox
			FOR EACH ROW EXECUTE FUNCTION notify_draft_outbox()`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
