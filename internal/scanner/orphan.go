// Package scanner finds students with no active team membership and submits
// them to the external removal workflow. This is a periodic batch job, not an
// event handler: orphans are discovered eventually, not reactively.
package scanner

import (
	"context"
	"fmt"
	"log"

	studentdomain "classtrack-sync/backend/internal/student/domain"
	"classtrack-sync/backend/internal/workflow"
)

// RemovalWorkflowID names the orchestrator workflow that retires a student.
const RemovalWorkflowID = "student-removal"

// StudentScanner pages through all students in key order.
type StudentScanner interface {
	Scan(ctx context.Context, token string, limit int) ([]*studentdomain.Student, string, error)
}

// TeamRepo counts active memberships per student.
type TeamRepo interface {
	CountActiveByStudent(ctx context.Context, studentID string) (int, error)
}

// Scanner runs the orphan lifecycle scan.
type Scanner struct {
	students  StudentScanner
	teams     TeamRepo
	workflows workflow.Starter
	pageSize  int
}

// NewScanner wires the scanner's collaborators.
func NewScanner(students StudentScanner, teams TeamRepo, workflows workflow.Starter, pageSize int) *Scanner {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Scanner{students: students, teams: teams, workflows: workflows, pageSize: pageSize}
}

// Run scans every student page by page until the continuation token is
// exhausted, submitting a removal for each orphan. Pages run one at a time;
// a collaborator failure aborts the scan and surfaces to the caller.
// Returns the number of removal requests submitted.
func (s *Scanner) Run(ctx context.Context) (int, error) {
	submitted := 0
	token := ""
	for {
		students, next, err := s.students.Scan(ctx, token, s.pageSize)
		if err != nil {
			return submitted, fmt.Errorf("orphan scan: %w", err)
		}
		for _, st := range students {
			active, err := s.teams.CountActiveByStudent(ctx, st.ID)
			if err != nil {
				return submitted, fmt.Errorf("orphan scan: student %s: %w", st.ID, err)
			}
			if active > 0 {
				continue
			}
			if err := s.workflows.Start(ctx, RemovalWorkflowID, map[string]string{"studentId": st.ID}); err != nil {
				return submitted, fmt.Errorf("orphan scan: submit %s: %w", st.ID, err)
			}
			log.Printf("orphan scan: submitted removal for student %s", st.ID)
			submitted++
		}
		if next == "" {
			return submitted, nil
		}
		token = next
	}
}
