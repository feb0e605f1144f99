// Package fanout propagates Student changes to the device projections bound
// to the student and mirrors a reduced student summary to the blob store.
package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appdomain "classtrack-sync/backend/internal/app/domain"
	"classtrack-sync/backend/internal/event"
	"classtrack-sync/backend/internal/mirror"
	"classtrack-sync/backend/internal/student/domain"
)

// EntityType is the CDC entity type this handler consumes.
const EntityType = "student"

// AppRepo is the minimal app access needed by student fan-out.
type AppRepo interface {
	GetAppsForStudent(ctx context.Context, studentID string) ([]*appdomain.App, error)
	UpdateLicense(ctx context.Context, studentID, appID, licenseID string) error
	UpdatePII(ctx context.Context, studentID, appID string, pii appdomain.PII) error
}

// Handler fans one student change out to its app projections and the mirror.
type Handler struct {
	apps   AppRepo
	mirror mirror.Store
}

// NewHandler wires the handler's collaborators.
func NewHandler(apps AppRepo, store mirror.Store) *Handler {
	return &Handler{apps: apps, mirror: store}
}

// HandleEnvelope decodes the envelope and runs the fan-out. Registered with
// the dispatcher under EntityType.
func (h *Handler) HandleEnvelope(ctx context.Context, env *event.Envelope) error {
	change, err := event.DecodeChange[domain.Student](env)
	if err != nil {
		return &event.RejectError{Reason: err}
	}
	return h.Handle(ctx, change)
}

// Handle refreshes app projections and mirrors the student summary.
//
// The app path runs only for updates: a brand-new student has no bound apps
// yet, and a deleted student's apps are cleaned up by a separate lifecycle
// path. The mirror runs for updates and (backfill-synthesized) creations.
func (h *Handler) Handle(ctx context.Context, change event.Change[domain.Student]) error {
	var errs []error
	if change.Kind == event.KindUpdated {
		if err := h.refreshApps(ctx, change.Old, change.New); err != nil {
			errs = append(errs, err)
		}
	}
	if change.New != nil {
		if err := h.MirrorStudent(ctx, change.New); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// refreshApps updates the denormalized license reference first when it moved,
// so no app is left pointing at a stale license id during the resync, then
// regenerates every bound app's display projection.
func (h *Handler) refreshApps(ctx context.Context, oldState, newState *domain.Student) error {
	apps, err := h.apps.GetAppsForStudent(ctx, newState.ID)
	if err != nil {
		return fmt.Errorf("student app fan-out: %w", err)
	}
	if len(apps) == 0 {
		return nil
	}

	var errs []error
	if oldState.LicenseID != newState.LicenseID {
		results := event.FanOut(ctx, apps,
			func(a *appdomain.App) string { return a.AppID },
			func(ctx context.Context, a *appdomain.App) error {
				return h.apps.UpdateLicense(ctx, a.StudentID, a.AppID, newState.LicenseID)
			})
		if err := event.JoinErrors(results); err != nil {
			errs = append(errs, err)
		}
	}

	results := event.FanOut(ctx, apps,
		func(a *appdomain.App) string { return a.AppID },
		func(ctx context.Context, a *appdomain.App) error {
			return h.apps.UpdatePII(ctx, a.StudentID, a.AppID, ProjectPII(a, newState))
		})
	if err := event.JoinErrors(results); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ProjectPII recomputes the device display record from the student's current
// definitions, filtered to the ids the app actually tracks. A behavior the
// student no longer defines is dropped from the name list while the app keeps
// tracking the id. Service names are device-local and carried over as-is.
func ProjectPII(app *appdomain.App, s *domain.Student) appdomain.PII {
	pii := appdomain.PII{ServiceNames: app.PII.ServiceNames}
	for _, tracked := range app.Config.Behaviors {
		b := s.BehaviorByID(tracked.ID)
		if b == nil {
			continue
		}
		item := appdomain.NamedItem{ID: b.ID, Name: b.Name}
		if b.ABC != nil {
			item.Antecedents = b.ABC.Antecedents
			item.Consequences = b.ABC.Consequences
		}
		pii.BehaviorNames = append(pii.BehaviorNames, item)
	}
	for _, tracked := range app.Config.Responses {
		r := s.ResponseByID(tracked.ID)
		if r == nil {
			continue
		}
		pii.ResponseNames = append(pii.ResponseNames, appdomain.NamedItem{ID: r.ID, Name: r.Name})
	}
	return pii
}

// summaryRecord is the reduced student summary written to the mirror,
// partitioned by license then student id.
type summaryRecord struct {
	StudentID    string          `json:"studentId"`
	LicenseID    string          `json:"license"`
	Expiration   time.Time       `json:"expiration"`
	Features     map[string]bool `json:"features"`
	Behaviors    string          `json:"behaviors"`
	Responses    string          `json:"responses"`
	LastActivity time.Time       `json:"lastActivity"`
	LastUpdated  time.Time       `json:"lastUpdated"`
	Archived     bool            `json:"archived"`
}

// MirrorStudent writes the reduced summary blob for the student. Skipped when
// the record carries no license reference: there is nothing to key the mirror
// path by. Writing the same state twice yields the same blob.
func (h *Handler) MirrorStudent(ctx context.Context, s *domain.Student) error {
	if s.LicenseID == "" {
		return nil
	}
	behaviors, err := json.Marshal(s.Behaviors)
	if err != nil {
		return fmt.Errorf("student mirror: %w", err)
	}
	responses, err := json.Marshal(s.Responses)
	if err != nil {
		return fmt.Errorf("student mirror: %w", err)
	}
	payload, err := json.Marshal(summaryRecord{
		StudentID:    s.ID,
		LicenseID:    s.LicenseID,
		Expiration:   s.LicenseSummary.Expiration,
		Features:     s.LicenseSummary.Features,
		Behaviors:    string(behaviors),
		Responses:    string(responses),
		LastActivity: s.LastActivity,
		LastUpdated:  s.LastUpdated,
		Archived:     s.Archived,
	})
	if err != nil {
		return fmt.Errorf("student mirror: %w", err)
	}
	return h.mirror.Put(ctx, mirror.StudentKey(s.LicenseID, s.ID), payload)
}
