package repository

import (
	"context"

	licensedomain "classtrack-sync/backend/internal/license/domain"
	"classtrack-sync/backend/internal/student/domain"
)

// Repository defines persistence for students.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Student, error)
	GetByLicense(ctx context.Context, licenseID string) ([]*domain.Student, error)
	// UpdateLicenseFields overwrites only the license-derived fields on the
	// student; owned override flags, archived state, and tags are untouched.
	UpdateLicenseFields(ctx context.Context, studentID, licenseID string, summary licensedomain.Summary) error
	// Scan pages through all students in key order. token is the last student
	// id of the previous page ("" for the first page); the returned token is
	// "" when the scan is exhausted.
	Scan(ctx context.Context, token string, limit int) ([]*domain.Student, string, error)
}
