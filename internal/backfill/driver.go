// Package backfill rebuilds the student mirror from the persisted primary
// records. Safe to run alongside live traffic: it only re-asserts current
// state through the same mirror-write path the event handlers use, and never
// deletes.
package backfill

import (
	"context"
	"fmt"
	"log"

	"classtrack-sync/backend/internal/event"
	studentdomain "classtrack-sync/backend/internal/student/domain"
)

// StudentScanner pages through primary student records in key order.
type StudentScanner interface {
	Scan(ctx context.Context, token string, limit int) ([]*studentdomain.Student, string, error)
}

// StudentHandler is the student fan-out handler's change entry point.
type StudentHandler interface {
	Handle(ctx context.Context, change event.Change[studentdomain.Student]) error
}

// Driver replays every persisted student as a synthetic creation event.
type Driver struct {
	students StudentScanner
	handler  StudentHandler
	pageSize int
}

// NewDriver wires the driver's collaborators.
func NewDriver(students StudentScanner, handler StudentHandler, pageSize int) *Driver {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Driver{students: students, handler: handler, pageSize: pageSize}
}

// Run scans all primary records and pushes each through the handler as a
// creation (old absent, new = row). Creations skip the app fan-out path, so
// only the mirror is rewritten. Records the handler skips (no license
// reference) are counted as processed; a failed row aborts the run so the
// operator can re-run after fixing the collaborator.
func (d *Driver) Run(ctx context.Context) (int, error) {
	processed := 0
	token := ""
	for {
		students, next, err := d.students.Scan(ctx, token, d.pageSize)
		if err != nil {
			return processed, fmt.Errorf("backfill: %w", err)
		}
		for _, s := range students {
			if err := d.handler.Handle(ctx, event.Created(s)); err != nil {
				return processed, fmt.Errorf("backfill: student %s: %w", s.ID, err)
			}
			processed++
		}
		if next == "" {
			log.Printf("backfill: processed %d student records", processed)
			return processed, nil
		}
		token = next
	}
}
