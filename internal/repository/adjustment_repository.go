package repository

import (
	"context"
	"time"

	"timebank-backend/internal/dates"
	"timebank-backend/internal/db"
	"timebank-backend/internal/domain"
)

type AdjustmentRepository struct {
	DB *db.Postgres
}

func (r AdjustmentRepository) Select(ctx context.Context, userID string) ([]domain.Adjustment, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, target_date, kind, delta_minutes, justification, at_iso
		FROM adjustments
		WHERE user_id = $1
		ORDER BY target_date ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Adjustment
	for rows.Next() {
		var a domain.Adjustment
		var target time.Time
		var kind string
		var atISO *time.Time
		if err := rows.Scan(&a.ID, &target, &kind, &a.Minutes, &a.Justification, &atISO); err != nil {
			return nil, err
		}
		a.Kind = domain.AdjustmentKind(kind)
		if atISO != nil {
			a.At = *atISO
		} else {
			// Rows written before at_iso existed carry only the target day.
			a.At = dates.Noon(target.Format("2006-01-02"))
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r AdjustmentRepository) Insert(ctx context.Context, userID string, a domain.Adjustment) error {
	_, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO adjustments (id, user_id, target_date, kind, delta_minutes, justification, at_iso)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, a.ID, userID, dates.Key(a.At), string(a.Kind), storedMinutes(a), a.Justification, a.At)
	return err
}

func (r AdjustmentRepository) Update(ctx context.Context, userID string, a domain.Adjustment) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE adjustments
		SET target_date = $3, kind = $4, delta_minutes = $5, justification = $6, at_iso = $7
		WHERE user_id = $1 AND id = $2
	`, userID, a.ID, dates.Key(a.At), string(a.Kind), storedMinutes(a), a.Justification, a.At)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r AdjustmentRepository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.DB.Pool.Exec(ctx, `
		DELETE FROM adjustments WHERE user_id = $1 AND id = $2
	`, userID, id)
	return err
}

func (r AdjustmentRepository) Upsert(ctx context.Context, userID string, a domain.Adjustment) error {
	_, err := r.DB.Pool.Exec(ctx, `
		INSERT INTO adjustments (id, user_id, target_date, kind, delta_minutes, justification, at_iso)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id, id)
		DO UPDATE SET target_date = EXCLUDED.target_date, kind = EXCLUDED.kind,
			delta_minutes = EXCLUDED.delta_minutes, justification = EXCLUDED.justification,
			at_iso = EXCLUDED.at_iso
	`, a.ID, userID, dates.Key(a.At), string(a.Kind), storedMinutes(a), a.Justification, a.At)
	return err
}

// storedMinutes keeps the medical-leave invariant at the storage boundary.
func storedMinutes(a domain.Adjustment) int {
	if a.Kind == domain.AdjustmentMedicalLeave {
		return 0
	}
	return a.Minutes
}
