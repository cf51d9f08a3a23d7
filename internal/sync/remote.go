package sync

import (
	"context"
	"time"

	"timebank-backend/internal/domain"
)

// RemoteStore is the row-level remote surface the engine reconciles against.
// Implementations must scope every operation by userID; GetSettings returns
// (nil, nil) when the user has no settings row. *repository.RemoteStore is
// the production implementation.
type RemoteStore interface {
	SelectPunches(ctx context.Context, userID string) ([]domain.Punch, error)
	InsertPunch(ctx context.Context, userID string, p domain.Punch) error
	InsertPunches(ctx context.Context, userID string, punches []domain.Punch) error
	UpdatePunch(ctx context.Context, userID string, p domain.Punch) error
	UpsertPunch(ctx context.Context, userID string, p domain.Punch) error
	DeletePunch(ctx context.Context, userID, id string) error

	SelectAdjustments(ctx context.Context, userID string) ([]domain.Adjustment, error)
	InsertAdjustment(ctx context.Context, userID string, a domain.Adjustment) error
	UpdateAdjustment(ctx context.Context, userID string, a domain.Adjustment) error
	UpsertAdjustment(ctx context.Context, userID string, a domain.Adjustment) error
	DeleteAdjustment(ctx context.Context, userID, id string) error

	GetSettings(ctx context.Context, userID string) (*domain.SettingsRecord, error)
	UpsertSettings(ctx context.Context, userID string, s domain.Settings, updatedAt time.Time) error
}
