package repository

import (
	"context"
	"database/sql"

	"classtrack-sync/backend/internal/team/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a team membership repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByStudent returns every membership for the student, removed ones included.
func (r *PostgresRepository) GetByStudent(ctx context.Context, studentID string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, user_id, removed FROM team_members WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.StudentID, &m.UserID, &m.Removed); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountActiveByStudent returns the number of non-removed memberships.
func (r *PostgresRepository) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM team_members WHERE student_id = $1 AND NOT removed`, studentID).Scan(&n)
	return n, err
}
