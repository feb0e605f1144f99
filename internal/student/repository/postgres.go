package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	licensedomain "classtrack-sync/backend/internal/license/domain"
	"classtrack-sync/backend/internal/student/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a student repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const studentColumns = `student_id, license_id, expiration, features, full_year, flexible,
	transferable, archived, tags, behaviors, responses, documents, last_activity, last_updated`

// GetByID returns the student for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE student_id = $1`, id)
	s, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// GetByLicense returns all students referencing the given license.
func (r *PostgresRepository) GetByLicense(ctx context.Context, licenseID string) ([]*domain.Student, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE license_id = $1 ORDER BY student_id`, licenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStudents(rows)
}

// UpdateLicenseFields overwrites the license reference and license-derived
// summary columns only. The column list is the field-isolation contract:
// owned student state never appears here.
func (r *PostgresRepository) UpdateLicenseFields(ctx context.Context, studentID, licenseID string, summary licensedomain.Summary) error {
	features, err := json.Marshal(summary.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE students SET license_id = $2, expiration = $3, features = $4, last_updated = now()
		 WHERE student_id = $1`,
		studentID, licenseID, summary.Expiration, features)
	return err
}

// Scan pages through students ordered by student_id using key-set pagination.
func (r *PostgresRepository) Scan(ctx context.Context, token string, limit int) ([]*domain.Student, string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE student_id > $1 ORDER BY student_id LIMIT $2`,
		token, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	students, err := collectStudents(rows)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(students) == limit {
		next = students[len(students)-1].ID
	}
	return students, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*domain.Student, error) {
	var (
		s        domain.Student
		features []byte
		tags     []byte
		behav    []byte
		resp     []byte
		docs     []byte
	)
	err := row.Scan(&s.ID, &s.LicenseID, &s.LicenseSummary.Expiration, &features,
		&s.FullYear, &s.Flexible, &s.Transferable, &s.Archived,
		&tags, &behav, &resp, &docs, &s.LastActivity, &s.LastUpdated)
	if err != nil {
		return nil, err
	}
	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{features, &s.LicenseSummary.Features},
		{tags, &s.Tags},
		{behav, &s.Behaviors},
		{resp, &s.Responses},
		{docs, &s.Documents},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("student %s: %w", s.ID, err)
		}
	}
	return &s, nil
}

func collectStudents(rows *sql.Rows) ([]*domain.Student, error) {
	var out []*domain.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
