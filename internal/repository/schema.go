package repository

import (
	"context"

	"timebank-backend/internal/db"
)

// EnsureSchema creates the remote tables when missing. Row-level scoping is by
// user_id; punch and adjustment rows are keyed (user_id, id) so client-side
// upserts replay safely.
func EnsureSchema(ctx context.Context, pg *db.Postgres) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		role          TEXT NOT NULL DEFAULT 'user',
		is_google     BOOLEAN NOT NULL DEFAULT false,
		password_hash TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS punches (
		id      TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES users(id),
		at_iso  TIMESTAMPTZ NOT NULL,
		kind    TEXT NOT NULL,
		note    TEXT,
		PRIMARY KEY (user_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_punches_user_at ON punches (user_id, at_iso);

	CREATE TABLE IF NOT EXISTS adjustments (
		id            TEXT NOT NULL,
		user_id       TEXT NOT NULL REFERENCES users(id),
		target_date   DATE NOT NULL,
		kind          TEXT NOT NULL,
		delta_minutes INTEGER NOT NULL DEFAULT 0,
		justification TEXT NOT NULL DEFAULT '',
		at_iso        TIMESTAMPTZ,
		PRIMARY KEY (user_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_adjustments_user_date ON adjustments (user_id, target_date);

	CREATE TABLE IF NOT EXISTS settings (
		user_id    TEXT PRIMARY KEY REFERENCES users(id),
		settings   JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	_, err := pg.Pool.Exec(ctx, schema)
	return err
}
