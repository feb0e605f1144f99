// Package fanout propagates License changes to every projection derived from
// a license: the durable mirror blob, student license summaries, user admin
// associations, and student template application.
//
// Each side effect is independently idempotent. There is no cross-store
// transaction: a failed target leaves the others applied, and convergence is
// restored by the next event or a backfill run.
package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"classtrack-sync/backend/internal/event"
	"classtrack-sync/backend/internal/license/diff"
	licensedomain "classtrack-sync/backend/internal/license/domain"
	"classtrack-sync/backend/internal/mirror"
	studentdomain "classtrack-sync/backend/internal/student/domain"
	"classtrack-sync/backend/internal/template"
	userdomain "classtrack-sync/backend/internal/user/domain"
)

// EntityType is the CDC entity type this handler consumes.
const EntityType = "license"

// StudentRepo is the minimal student access needed by license fan-out.
type StudentRepo interface {
	GetByLicense(ctx context.Context, licenseID string) ([]*studentdomain.Student, error)
	UpdateLicenseFields(ctx context.Context, studentID, licenseID string, summary licensedomain.Summary) error
}

// UserRepo is the minimal user access needed by license fan-out.
type UserRepo interface {
	GetAdminsForLicense(ctx context.Context, licenseID string) ([]userdomain.AdminAssociation, error)
	GetUserIDsByEmail(ctx context.Context, email string) ([]string, error)
	AddUserToLicense(ctx context.Context, userID, licenseID, email string) error
	RemoveUserFromLicense(ctx context.Context, userID, licenseID string) error
}

// Handler fans one license change out to its dependent projections.
type Handler struct {
	students  StudentRepo
	users     UserRepo
	mirror    mirror.Store
	templates template.Applier
	batchSize int
}

// NewHandler wires the handler's collaborators. Every collaborator is
// required: template application is a mandatory fan-out step, so a missing
// applier is a wiring error, not a per-event skip. batchSize bounds
// concurrent template applications per batch.
func NewHandler(students StudentRepo, users UserRepo, store mirror.Store, templates template.Applier, batchSize int) (*Handler, error) {
	if students == nil || users == nil || store == nil || templates == nil {
		return nil, errors.New("license fanout: students, users, mirror, and template collaborators are all required")
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Handler{
		students:  students,
		users:     users,
		mirror:    store,
		templates: templates,
		batchSize: batchSize,
	}, nil
}

// HandleEnvelope decodes the envelope and runs the fan-out. Registered with
// the dispatcher under EntityType.
func (h *Handler) HandleEnvelope(ctx context.Context, env *event.Envelope) error {
	change, err := event.DecodeChange[licensedomain.License](env)
	if err != nil {
		return &event.RejectError{Reason: err}
	}
	return h.Handle(ctx, change)
}

// Handle runs the four fan-out steps. Steps are independent: every step is
// attempted even when an earlier one fails, and the failures are joined so
// the event system retries the whole event.
func (h *Handler) Handle(ctx context.Context, change event.Change[licensedomain.License]) error {
	current := change.Current()

	var errs []error
	if err := h.writeMirror(ctx, current); err != nil {
		errs = append(errs, err)
	}
	if err := h.propagateSummaries(ctx, change); err != nil {
		errs = append(errs, err)
	}
	if err := h.propagateAdmins(ctx, change, current.ID); err != nil {
		errs = append(errs, err)
	}
	if err := h.propagateTemplates(ctx, change); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// writeMirror serializes the current state to the blob store. On deletion the
// last known (old) state is kept as an archival snapshot; the blob is never
// removed here.
func (h *Handler) writeMirror(ctx context.Context, current *licensedomain.License) error {
	payload, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("license mirror: %w", err)
	}
	return h.mirror.Put(ctx, mirror.LicenseKey(current.ID), payload)
}

// propagateSummaries overwrites the license-derived fields on every student
// referencing the license. Skipped when the change is irrelevant (tag or
// admin edits) or when there is no new state to copy from.
func (h *Handler) propagateSummaries(ctx context.Context, change event.Change[licensedomain.License]) error {
	if change.New == nil {
		return nil
	}
	if !diff.RelevantChange(change.Old, change.New) {
		return nil
	}
	students, err := h.students.GetByLicense(ctx, change.New.ID)
	if err != nil {
		return fmt.Errorf("license summary fan-out: %w", err)
	}
	summary := change.New.Summarize()
	results := event.FanOut(ctx, students,
		func(s *studentdomain.Student) string { return s.ID },
		func(ctx context.Context, s *studentdomain.Student) error {
			return h.students.UpdateLicenseFields(ctx, s.ID, change.New.ID, summary)
		})
	return event.JoinErrors(results)
}

// propagateAdmins applies the admin email delta as association grants and
// revocations. Adds run before removes; the operations are independent and
// final state does not depend on order. Emails resolving to no known user
// are logged and skipped, never an error.
func (h *Handler) propagateAdmins(ctx context.Context, change event.Change[licensedomain.License], licenseID string) error {
	current, err := h.users.GetAdminsForLicense(ctx, licenseID)
	if err != nil {
		return fmt.Errorf("license admin fan-out: %w", err)
	}
	grants := make([]diff.Grant, len(current))
	for i, a := range current {
		grants[i] = diff.Grant{UserID: a.UserID, Email: a.Email}
	}

	var oldAdmins, newAdmins []string
	if change.Old != nil {
		oldAdmins = change.Old.Details.Admins
	}
	if change.New != nil {
		newAdmins = change.New.Details.Admins
	}
	removeIDs, addEmails := diff.AdminDelta(oldAdmins, newAdmins, grants)

	type grant struct{ userID, email string }
	var adds []grant
	for _, email := range addEmails {
		ids, err := h.users.GetUserIDsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("license admin fan-out: resolve %s: %w", email, err)
		}
		if len(ids) == 0 {
			// Unregistered invitee; the grant happens when they sign up.
			log.Printf("license %s: admin email %s resolves to no user, skipped", licenseID, email)
			continue
		}
		for _, id := range ids {
			adds = append(adds, grant{userID: id, email: email})
		}
	}

	addResults := event.FanOut(ctx, adds,
		func(g grant) string { return g.userID },
		func(ctx context.Context, g grant) error {
			return h.users.AddUserToLicense(ctx, g.userID, licenseID, g.email)
		})
	removeResults := event.FanOut(ctx, removeIDs,
		func(id string) string { return id },
		func(ctx context.Context, id string) error {
			return h.users.RemoveUserFromLicense(ctx, id, licenseID)
		})
	return errors.Join(event.JoinErrors(addResults), event.JoinErrors(removeResults))
}

// propagateTemplates re-applies the student template set when it changed
// structurally. Applications run in fixed-size batches, each awaited before
// the next, to bound the template engine's load.
func (h *Handler) propagateTemplates(ctx context.Context, change event.Change[licensedomain.License]) error {
	if change.New == nil {
		return nil
	}
	var oldTemplates []licensedomain.Template
	if change.Old != nil {
		oldTemplates = change.Old.StudentTemplates
	}
	if diff.TemplatesEqual(oldTemplates, change.New.StudentTemplates) {
		return nil
	}
	students, err := h.students.GetByLicense(ctx, change.New.ID)
	if err != nil {
		return fmt.Errorf("license template fan-out: %w", err)
	}
	results := event.FanOutBatched(ctx, students, h.batchSize,
		func(s *studentdomain.Student) string { return s.ID },
		func(ctx context.Context, s *studentdomain.Student) error {
			return h.templates.ProcessStudentTemplates(ctx, s, change.New.ID, change.New.StudentTemplates)
		})
	return event.JoinErrors(results)
}
