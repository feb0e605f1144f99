package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"classtrack-sync/backend/internal/app/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an app repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetAppsForStudent returns all app projections bound to the student.
func (r *PostgresRepository) GetAppsForStudent(ctx context.Context, studentID string) ([]*domain.App, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, app_id, license_id, device_id, config, pii
		 FROM apps WHERE student_id = $1 ORDER BY app_id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.App
	for rows.Next() {
		var (
			a      domain.App
			rawCfg []byte
			rawPII []byte
		)
		if err := rows.Scan(&a.StudentID, &a.AppID, &a.LicenseID, &a.DeviceID, &rawCfg, &rawPII); err != nil {
			return nil, err
		}
		if len(rawCfg) > 0 {
			if err := json.Unmarshal(rawCfg, &a.Config); err != nil {
				return nil, fmt.Errorf("app %s/%s config: %w", a.StudentID, a.AppID, err)
			}
		}
		if len(rawPII) > 0 {
			if err := json.Unmarshal(rawPII, &a.PII); err != nil {
				return nil, fmt.Errorf("app %s/%s pii: %w", a.StudentID, a.AppID, err)
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// GetConfig returns the app's tracked-item configuration, or nil if the app
// does not exist. It returns an error only for database failures.
func (r *PostgresRepository) GetConfig(ctx context.Context, studentID, appID string) (*domain.Config, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT config FROM apps WHERE student_id = $1 AND app_id = $2`, studentID, appID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var cfg domain.Config
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// GetPII returns the app's display record, or nil if the app does not exist.
func (r *PostgresRepository) GetPII(ctx context.Context, studentID, appID string) (*domain.PII, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT pii FROM apps WHERE student_id = $1 AND app_id = $2`, studentID, appID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var pii domain.PII
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &pii); err != nil {
			return nil, err
		}
	}
	return &pii, nil
}

// UpdateConfig replaces the app's tracked-item configuration.
func (r *PostgresRepository) UpdateConfig(ctx context.Context, studentID, appID string, cfg domain.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE apps SET config = $3 WHERE student_id = $1 AND app_id = $2`,
		studentID, appID, raw)
	return err
}

// UpdatePII replaces the app's display record.
func (r *PostgresRepository) UpdatePII(ctx context.Context, studentID, appID string, pii domain.PII) error {
	raw, err := json.Marshal(pii)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE apps SET pii = $3 WHERE student_id = $1 AND app_id = $2`,
		studentID, appID, raw)
	return err
}

// UpdateLicense rewrites the denormalized license reference on one app.
func (r *PostgresRepository) UpdateLicense(ctx context.Context, studentID, appID, licenseID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE apps SET license_id = $3 WHERE student_id = $1 AND app_id = $2`,
		studentID, appID, licenseID)
	return err
}
