package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// Все операторы идемпотентны: dry-run применяет их внутри откатываемой
// транзакции поверх уже мигрированной схемы.
var clubSchemaUp = []string{
	`CREATE TABLE IF NOT EXISTS clubs (
		id          SERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		format      TEXT,
		invite_code TEXT NOT NULL UNIQUE,
		owner_id    INTEGER NOT NULL REFERENCES users(id),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS club_members (
		id        SERIAL PRIMARY KEY,
		club_id   INTEGER NOT NULL REFERENCES clubs(id) ON DELETE CASCADE,
		user_id   INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role      TEXT NOT NULL CHECK (role IN ('owner', 'admin', 'player')),
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (club_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tournament_participants (
		id            SERIAL PRIMARY KEY,
		tournament_id INTEGER NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role          TEXT NOT NULL DEFAULT 'player',
		status        TEXT NOT NULL DEFAULT 'registered',
		joined_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (tournament_id, user_id)
	)`,
	`ALTER TABLE tournaments
		ADD COLUMN IF NOT EXISTS club_id INTEGER REFERENCES clubs(id),
		ADD COLUMN IF NOT EXISTS invite_code TEXT UNIQUE,
		ADD COLUMN IF NOT EXISTS allow_self_join BOOLEAN NOT NULL DEFAULT FALSE,
		ADD COLUMN IF NOT EXISTS player_cap INTEGER,
		ADD COLUMN IF NOT EXISTS leaderboard_visible BOOLEAN NOT NULL DEFAULT TRUE`,
	`ALTER TABLE tournament_scores
		ADD COLUMN IF NOT EXISTS participant_id INTEGER REFERENCES tournament_participants(id) ON DELETE SET NULL`,
	`CREATE INDEX IF NOT EXISTS idx_tournament_scores_participant ON tournament_scores (participant_id)`,
}

var clubSchemaDown = []string{
	`DROP INDEX IF EXISTS idx_tournament_scores_participant`,
	`ALTER TABLE tournament_scores DROP COLUMN IF EXISTS participant_id`,
	`ALTER TABLE tournaments
		DROP COLUMN IF EXISTS leaderboard_visible,
		DROP COLUMN IF EXISTS player_cap,
		DROP COLUMN IF EXISTS allow_self_join,
		DROP COLUMN IF EXISTS invite_code,
		DROP COLUMN IF EXISTS club_id`,
	`DROP TABLE IF EXISTS tournament_participants`,
	`DROP TABLE IF EXISTS club_members`,
	`DROP TABLE IF EXISTS clubs`,
}

// CreateClubSchema adds the club tables and the new tournament and score
// columns. It is safe to run more than once.
func CreateClubSchema(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, clubSchemaUp)
}

func dropClubSchemaDB(ctx context.Context, db *sql.DB) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	return execAll(ctx, tx, clubSchemaDown)
}

func execAll(ctx context.Context, tx *sql.Tx, statements []string) error {
	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
