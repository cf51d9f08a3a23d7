package repository

import (
	"context"

	"timebank-backend/internal/db"
	"timebank-backend/internal/domain"
)

type PunchRepository struct {
	DB *db.Postgres
}

func (r PunchRepository) Select(ctx context.Context, userID string) ([]domain.Punch, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, at_iso, kind, note
		FROM punches
		WHERE user_id = $1
		ORDER BY at_iso ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Punch
	for rows.Next() {
		var p domain.Punch
		var kind string
		var note *string
		if err := rows.Scan(&p.ID, &p.At, &kind, &note); err != nil {
			return nil, err
		}
		p.Kind = domain.PunchKind(kind)
		if note != nil {
			p.Note = *note
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r PunchRepository) Insert(ctx context.Context, userID string, p domain.Punch) error {
	_, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO punches (id, user_id, at_iso, kind, note)
		VALUES ($1,$2,$3,$4,$5)
	`, p.ID, userID, p.At, string(p.Kind), noteOrNil(p.Note))
	return err
}

func (r PunchRepository) InsertBatch(ctx context.Context, userID string, punches []domain.Punch) error {
	if len(punches) == 0 {
		return nil
	}
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, p := range punches {
		if _, err := tx.Exec(ctx, `
			INSERT INTO punches (id, user_id, at_iso, kind, note)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (user_id, id) DO NOTHING
		`, p.ID, userID, p.At, string(p.Kind), noteOrNil(p.Note)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r PunchRepository) Update(ctx context.Context, userID string, p domain.Punch) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE punches SET at_iso = $3, kind = $4, note = $5
		WHERE user_id = $1 AND id = $2
	`, userID, p.ID, p.At, string(p.Kind), noteOrNil(p.Note))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r PunchRepository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.DB.Pool.Exec(ctx, `
		DELETE FROM punches WHERE user_id = $1 AND id = $2
	`, userID, id)
	return err
}

// Upsert is the replay-safe write used when flushing the pending queue.
func (r PunchRepository) Upsert(ctx context.Context, userID string, p domain.Punch) error {
	_, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO punches (id, user_id, at_iso, kind, note)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id, id)
		DO UPDATE SET at_iso = EXCLUDED.at_iso, kind = EXCLUDED.kind, note = EXCLUDED.note
	`, p.ID, userID, p.At, string(p.Kind), noteOrNil(p.Note))
	return err
}

func noteOrNil(note string) *string {
	if note == "" {
		return nil
	}
	return &note
}
