package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"classtrack-sync/backend/internal/db"
	licensedomain "classtrack-sync/backend/internal/license/domain"
)

// fakeRow replays one row's column values into scanStudent.
type fakeRow struct {
	vals []any
}

func (f fakeRow) Scan(dest ...any) error {
	if len(dest) != len(f.vals) {
		return fmt.Errorf("scan: %d destinations, %d values", len(dest), len(f.vals))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = f.vals[i].(string)
		case *bool:
			*p = f.vals[i].(bool)
		case *time.Time:
			*p = f.vals[i].(time.Time)
		case *[]byte:
			*p = f.vals[i].([]byte)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// A row created with nothing but the schema's column defaults must scan
// cleanly; a default shape the scanner cannot read would make one untouched
// row abort every full scan.
func TestScanStudentSchemaDefaults(t *testing.T) {
	now := time.Now().UTC()
	row := fakeRow{vals: []any{
		"S1",         // student_id
		"",           // license_id
		now,          // expiration
		[]byte(`{}`), // features
		false,        // full_year
		false,        // flexible
		false,        // transferable
		false,        // archived
		[]byte(`{}`), // tags
		[]byte(`[]`), // behaviors
		[]byte(`[]`), // responses
		[]byte(`[]`), // documents
		now,          // last_activity
		now,          // last_updated
	}}

	s, err := scanStudent(row)
	if err != nil {
		t.Fatalf("scanStudent on default row: %v", err)
	}
	if s.ID != "S1" {
		t.Errorf("ID = %q, want S1", s.ID)
	}
	if len(s.Tags) != 0 || len(s.Behaviors) != 0 || len(s.Responses) != 0 || len(s.Documents) != 0 {
		t.Errorf("default row should scan to empty collections, got %+v", s)
	}
	if len(s.LicenseSummary.Features) != 0 {
		t.Errorf("features = %v, want empty", s.LicenseSummary.Features)
	}
}

func TestScanStudentPopulatedRow(t *testing.T) {
	now := time.Now().UTC()
	row := fakeRow{vals: []any{
		"S2",
		"L1",
		now,
		[]byte(`{"duration":true}`),
		true,
		false,
		true,
		false,
		[]byte(`{"cohort":"2026"}`),
		[]byte(`[{"id":"b1","name":"calling out"}]`),
		[]byte(`[{"id":"r1","name":"redirect"}]`),
		[]byte(`[]`),
		now,
		now,
	}}

	s, err := scanStudent(row)
	if err != nil {
		t.Fatalf("scanStudent: %v", err)
	}
	if s.LicenseID != "L1" || !s.FullYear || !s.Transferable {
		t.Errorf("scanned row = %+v", s)
	}
	if !s.LicenseSummary.Features["duration"] {
		t.Errorf("features = %v, want duration=true", s.LicenseSummary.Features)
	}
	if s.Tags["cohort"] != "2026" {
		t.Errorf("tags = %v", s.Tags)
	}
	if len(s.Behaviors) != 1 || s.Behaviors[0].ID != "b1" {
		t.Errorf("behaviors = %+v", s.Behaviors)
	}
}

func TestPostgresRepositoryRoundTrip(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	conn, err := db.Open(dsn)
	if err != nil {
		t.Skipf("database connection failed: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	repo := NewPostgresRepository(conn)
	studentID := "it-s-" + uuid.New().String()
	licenseID := "it-l-" + uuid.New().String()

	// Row created with column defaults only; GetByID must read it back.
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO students (student_id) VALUES ($1)`, studentID); err != nil {
		t.Fatalf("insert: %v", err)
	}
	defer conn.ExecContext(ctx, `DELETE FROM students WHERE student_id = $1`, studentID)

	s, err := repo.GetByID(ctx, studentID)
	if err != nil {
		t.Fatalf("GetByID on default row: %v", err)
	}
	if s == nil || s.ID != studentID {
		t.Fatalf("GetByID = %+v, want %s", s, studentID)
	}

	summary := licensedomain.Summary{
		Expiration: time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
		Features:   map[string]bool{"duration": true},
	}
	if err := repo.UpdateLicenseFields(ctx, studentID, licenseID, summary); err != nil {
		t.Fatalf("UpdateLicenseFields: %v", err)
	}
	s, err = repo.GetByID(ctx, studentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if s.LicenseID != licenseID || !s.LicenseSummary.Features["duration"] {
		t.Errorf("license fields = %q %v", s.LicenseID, s.LicenseSummary.Features)
	}

	byLicense, err := repo.GetByLicense(ctx, licenseID)
	if err != nil {
		t.Fatalf("GetByLicense: %v", err)
	}
	if len(byLicense) != 1 || byLicense[0].ID != studentID {
		t.Errorf("GetByLicense = %+v", byLicense)
	}

	missing, err := repo.GetByID(ctx, "it-missing-"+uuid.New().String())
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Errorf("missing student = %+v, want nil", missing)
	}
}
