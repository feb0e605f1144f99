package repository

import (
	"context"

	"classtrack-sync/backend/internal/app/domain"
)

// Repository defines persistence for app (device) projections.
type Repository interface {
	GetAppsForStudent(ctx context.Context, studentID string) ([]*domain.App, error)
	GetConfig(ctx context.Context, studentID, appID string) (*domain.Config, error)
	GetPII(ctx context.Context, studentID, appID string) (*domain.PII, error)
	UpdateConfig(ctx context.Context, studentID, appID string, cfg domain.Config) error
	UpdatePII(ctx context.Context, studentID, appID string, pii domain.PII) error
	// UpdateLicense rewrites the denormalized license reference on one app.
	UpdateLicense(ctx context.Context, studentID, appID, licenseID string) error
}
