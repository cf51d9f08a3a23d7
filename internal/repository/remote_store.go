package repository

import (
	"context"
	"errors"
	"time"

	"timebank-backend/internal/db"
	"timebank-backend/internal/domain"
)

// RemoteStore bundles the row-level repositories behind the interface the
// sync engine consumes, so the engine never touches a concrete client.
type RemoteStore struct {
	Punches     PunchRepository
	Adjustments AdjustmentRepository
	Settings    SettingsRepository
}

func NewRemoteStore(pg *db.Postgres) *RemoteStore {
	return &RemoteStore{
		Punches:     PunchRepository{DB: pg},
		Adjustments: AdjustmentRepository{DB: pg},
		Settings:    SettingsRepository{DB: pg},
	}
}

func (r *RemoteStore) SelectPunches(ctx context.Context, userID string) ([]domain.Punch, error) {
	return r.Punches.Select(ctx, userID)
}

func (r *RemoteStore) InsertPunch(ctx context.Context, userID string, p domain.Punch) error {
	return r.Punches.Insert(ctx, userID, p)
}

func (r *RemoteStore) InsertPunches(ctx context.Context, userID string, punches []domain.Punch) error {
	return r.Punches.InsertBatch(ctx, userID, punches)
}

func (r *RemoteStore) UpdatePunch(ctx context.Context, userID string, p domain.Punch) error {
	return r.Punches.Update(ctx, userID, p)
}

func (r *RemoteStore) UpsertPunch(ctx context.Context, userID string, p domain.Punch) error {
	return r.Punches.Upsert(ctx, userID, p)
}

func (r *RemoteStore) DeletePunch(ctx context.Context, userID, id string) error {
	return r.Punches.Delete(ctx, userID, id)
}

func (r *RemoteStore) SelectAdjustments(ctx context.Context, userID string) ([]domain.Adjustment, error) {
	return r.Adjustments.Select(ctx, userID)
}

func (r *RemoteStore) InsertAdjustment(ctx context.Context, userID string, a domain.Adjustment) error {
	return r.Adjustments.Insert(ctx, userID, a)
}

func (r *RemoteStore) UpdateAdjustment(ctx context.Context, userID string, a domain.Adjustment) error {
	return r.Adjustments.Update(ctx, userID, a)
}

func (r *RemoteStore) UpsertAdjustment(ctx context.Context, userID string, a domain.Adjustment) error {
	return r.Adjustments.Upsert(ctx, userID, a)
}

func (r *RemoteStore) DeleteAdjustment(ctx context.Context, userID, id string) error {
	return r.Adjustments.Delete(ctx, userID, id)
}

// GetSettings returns nil without error when the user never synced settings,
// matching the contract the sync engine consumes.
func (r *RemoteStore) GetSettings(ctx context.Context, userID string) (*domain.SettingsRecord, error) {
	rec, err := r.Settings.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func (r *RemoteStore) UpsertSettings(ctx context.Context, userID string, s domain.Settings, updatedAt time.Time) error {
	return r.Settings.Upsert(ctx, userID, s, updatedAt)
}
