package repository

import (
	"context"
	"database/sql"
	"errors"

	"classtrack-sync/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, name FROM users WHERE user_id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetUserIDsByEmail returns all user ids registered under the email.
// Unregistered emails return an empty slice.
func (r *PostgresRepository) GetUserIDsByEmail(ctx context.Context, email string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAdminsForLicense returns the current admin associations for the license.
func (r *PostgresRepository) GetAdminsForLicense(ctx context.Context, licenseID string) ([]domain.AdminAssociation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, license_id, email FROM license_admins WHERE license_id = $1`, licenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AdminAssociation
	for rows.Next() {
		var a domain.AdminAssociation
		if err := rows.Scan(&a.UserID, &a.LicenseID, &a.Email); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddUserToLicense grants the admin association. Idempotent: re-granting an
// existing association is a no-op, so event redelivery is safe.
func (r *PostgresRepository) AddUserToLicense(ctx context.Context, userID, licenseID, email string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO license_admins (user_id, license_id, email)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, license_id) DO NOTHING`,
		userID, licenseID, email)
	return err
}

// RemoveUserFromLicense revokes the admin association. Idempotent.
func (r *PostgresRepository) RemoveUserFromLicense(ctx context.Context, userID, licenseID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM license_admins WHERE user_id = $1 AND license_id = $2`,
		userID, licenseID)
	return err
}

// GetCounter returns the counter entry, or nil if absent.
func (r *PostgresRepository) GetCounter(ctx context.Context, userID, studentID string) (*domain.NotificationCounter, error) {
	var c domain.NotificationCounter
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, student_id, count, awaiting_response
		 FROM user_events WHERE user_id = $1 AND student_id = $2`,
		userID, studentID).
		Scan(&c.UserID, &c.StudentID, &c.Count, &c.AwaitingResponse)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// IncrementCounter is a single atomic upsert so concurrent deliveries for the
// same (user, student) key cannot lose an increment.
func (r *PostgresRepository) IncrementCounter(ctx context.Context, userID, studentID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_events (user_id, student_id, count, awaiting_response)
		 VALUES ($1, $2, 1, false)
		 ON CONFLICT (user_id, student_id)
		 DO UPDATE SET count = user_events.count + 1`,
		userID, studentID)
	return err
}

// DecrementCounter decrements with a floor at zero, then prunes the entry
// when it reached zero without awaiting a response. The decrement itself is a
// single atomic UPDATE; the prune re-checks its condition in the WHERE clause
// so a concurrent increment between the two statements keeps the entry.
func (r *PostgresRepository) DecrementCounter(ctx context.Context, userID, studentID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		count    int
		awaiting bool
	)
	err = tx.QueryRowContext(ctx,
		`UPDATE user_events
		 SET count = GREATEST(count - 1, 0)
		 WHERE user_id = $1 AND student_id = $2
		 RETURNING count, awaiting_response`,
		userID, studentID).Scan(&count, &awaiting)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No entry to decrement; redelivered or out-of-order event.
			return nil
		}
		return err
	}
	if count == 0 && !awaiting {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM user_events
			 WHERE user_id = $1 AND student_id = $2 AND count = 0 AND NOT awaiting_response`,
			userID, studentID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
