package repository

import (
	"context"

	"classtrack-sync/backend/internal/user/domain"
)

// Repository defines persistence for users, their license admin associations,
// and their notification counters.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetUserIDsByEmail returns the ids of users registered under the email.
	// An unknown email returns an empty slice, not an error.
	GetUserIDsByEmail(ctx context.Context, email string) ([]string, error)

	GetAdminsForLicense(ctx context.Context, licenseID string) ([]domain.AdminAssociation, error)
	AddUserToLicense(ctx context.Context, userID, licenseID, email string) error
	RemoveUserFromLicense(ctx context.Context, userID, licenseID string) error

	GetCounter(ctx context.Context, userID, studentID string) (*domain.NotificationCounter, error)
	// IncrementCounter atomically adds 1 to the (user, student) counter,
	// creating it at count=1 with awaitingResponse=false when absent.
	IncrementCounter(ctx context.Context, userID, studentID string) error
	// DecrementCounter atomically subtracts 1 flooring at zero, then removes
	// the entry when it reaches zero with awaitingResponse false. A missing
	// entry is a no-op.
	DecrementCounter(ctx context.Context, userID, studentID string) error
}
