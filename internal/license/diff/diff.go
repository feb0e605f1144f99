// Package diff holds the pure change-detection functions for license fan-out.
// Everything here is side-effect free; resolution of emails to user ids stays
// in the fan-out handler.
package diff

import (
	"maps"
	"reflect"

	"classtrack-sync/backend/internal/license/domain"
)

// Grant is one existing admin association, as stored for the license.
type Grant struct {
	UserID string
	Email  string
}

// RelevantChange reports whether a license change requires propagation to
// dependent Students: expiration moved, the feature-flag set differs, or the
// student-template list differs structurally. Unrelated field writes (tag
// edits, admin changes) return false and short-circuit the student fan-out.
//
// A missing side (creation or deletion) is always relevant.
func RelevantChange(oldState, newState *domain.License) bool {
	if oldState == nil || newState == nil {
		return true
	}
	if !oldState.Expiration.Equal(newState.Expiration) {
		return true
	}
	if !maps.Equal(oldState.Features, newState.Features) {
		return true
	}
	return !TemplatesEqual(oldState.StudentTemplates, newState.StudentTemplates)
}

// TemplatesEqual compares template lists by deep value equality. Order is
// significant: templates are applied in list order.
func TemplatesEqual(a, b []domain.Template) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// AdminDelta computes the admin membership delta between the old and new
// admin email lists, given the currently granted associations.
//
// removeIDs are user ids whose email was granted (present in current) and is
// in the old list but not the new one. addEmails are emails in the new list
// with no existing grant; the caller resolves them to user ids and silently
// drops emails that resolve to no known user.
//
// Either list may be nil: a deletion passes nil newAdmins (revoke everything
// granted), a creation passes nil oldAdmins (grant everything new).
func AdminDelta(oldAdmins, newAdmins []string, current []Grant) (removeIDs, addEmails []string) {
	granted := make(map[string]string, len(current))
	for _, g := range current {
		granted[g.Email] = g.UserID
	}
	newSet := make(map[string]struct{}, len(newAdmins))
	for _, email := range newAdmins {
		newSet[email] = struct{}{}
	}

	for _, email := range oldAdmins {
		if _, keep := newSet[email]; keep {
			continue
		}
		if id, ok := granted[email]; ok {
			removeIDs = append(removeIDs, id)
		}
	}
	for _, email := range newAdmins {
		if _, ok := granted[email]; !ok {
			addEmails = append(addEmails, email)
		}
	}
	return removeIDs, addEmails
}
