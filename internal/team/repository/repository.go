package repository

import (
	"context"

	"classtrack-sync/backend/internal/team/domain"
)

// Repository defines read access to team memberships.
type Repository interface {
	GetByStudent(ctx context.Context, studentID string) ([]domain.Membership, error)
	// CountActiveByStudent returns the number of non-removed memberships.
	CountActiveByStudent(ctx context.Context, studentID string) (int, error)
}
