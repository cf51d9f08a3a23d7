package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"timebank-backend/internal/db"
	"timebank-backend/internal/domain"
)

type SettingsRepository struct {
	DB *db.Postgres
}

// Get returns the user's settings row, or ErrNotFound when the user never
// synced settings.
func (r SettingsRepository) Get(ctx context.Context, userID string) (*domain.SettingsRecord, error) {
	var raw []byte
	var updatedAt time.Time
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT settings, updated_at FROM settings WHERE user_id = $1
	`, userID).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var s domain.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &domain.SettingsRecord{
		Settings:  domain.NormalizeSettings(s),
		UpdatedAt: updatedAt,
	}, nil
}

// Upsert writes the singleton settings row, conflict target (user_id).
func (r SettingsRepository) Upsert(ctx context.Context, userID string, s domain.Settings, updatedAt time.Time) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.DB.Pool.Exec(ctx, `
		INSERT INTO settings (user_id, settings, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id)
		DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at
	`, userID, raw, updatedAt)
	return err
}
