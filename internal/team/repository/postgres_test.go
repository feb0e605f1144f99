package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"classtrack-sync/backend/internal/db"
)

func TestMembershipQueries(t *testing.T) {
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

	if _, err := conn.ExecContext(ctx,
		`INSERT INTO team_members (student_id, user_id, removed)
		 VALUES ($1, 'u1', false), ($1, 'u2', true)`, studentID); err != nil {
		t.Fatalf("insert: %v", err)
	}
	defer conn.ExecContext(ctx, `DELETE FROM team_members WHERE student_id = $1`, studentID)

	members, err := repo.GetByStudent(ctx, studentID)
	if err != nil {
		t.Fatalf("GetByStudent: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("GetByStudent = %+v, want 2 memberships", members)
	}

	active, err := repo.CountActiveByStudent(ctx, studentID)
	if err != nil {
		t.Fatalf("CountActiveByStudent: %v", err)
	}
	if active != 1 {
		t.Errorf("active = %d, want 1 (removed membership excluded)", active)
	}

	active, err = repo.CountActiveByStudent(ctx, "it-missing-"+uuid.New().String())
	if err != nil {
		t.Fatalf("CountActiveByStudent missing: %v", err)
	}
	if active != 0 {
		t.Errorf("active for unknown student = %d, want 0", active)
	}
}
