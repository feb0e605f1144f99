package diff

import (
	"slices"
	"testing"
	"time"

	"classtrack-sync/backend/internal/license/domain"
)

func baseLicense() *domain.License {
	return &domain.License{
		ID:         "l1",
		Expiration: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
		Features:   map[string]bool{"duration": false, "abc": true},
		Details:    domain.Details{Admins: []string{"a@x.com"}},
		StudentTemplates: []domain.Template{
			{ID: "t1", Name: "default", Fields: map[string]any{"interval": float64(30)}},
		},
		Tags: map[string]string{"region": "us"},
	}
}

func TestRelevantChange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.License)
		want   bool
	}{
		{"identical", func(l *domain.License) {}, false},
		{"expiration moved", func(l *domain.License) { l.Expiration = l.Expiration.AddDate(1, 0, 0) }, true},
		{"feature flag flipped", func(l *domain.License) { l.Features["duration"] = true }, true},
		{"feature added", func(l *domain.License) { l.Features["video"] = true }, true},
		{"template field changed", func(l *domain.License) { l.StudentTemplates[0].Fields["interval"] = float64(60) }, true},
		{"template removed", func(l *domain.License) { l.StudentTemplates = nil }, true},
		{"tag edit only", func(l *domain.License) { l.Tags["region"] = "eu" }, false},
		{"admin edit only", func(l *domain.License) { l.Details.Admins = []string{"b@x.com"} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldState, newState := baseLicense(), baseLicense()
			tt.mutate(newState)
			if got := RelevantChange(oldState, newState); got != tt.want {
				t.Errorf("RelevantChange = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRelevantChange_MissingSide(t *testing.T) {
	l := baseLicense()
	if !RelevantChange(nil, l) {
		t.Error("creation should be relevant")
	}
	if !RelevantChange(l, nil) {
		t.Error("deletion should be relevant")
	}
}

func TestTemplatesEqual(t *testing.T) {
	a := []domain.Template{{ID: "t1", Fields: map[string]any{"k": "v"}}}
	b := []domain.Template{{ID: "t1", Fields: map[string]any{"k": "v"}}}
	if !TemplatesEqual(a, b) {
		t.Error("structurally equal templates reported unequal")
	}
	if !TemplatesEqual(nil, []domain.Template{}) {
		t.Error("nil and empty should compare equal")
	}
	b[0].Fields["k"] = "other"
	if TemplatesEqual(a, b) {
		t.Error("differing field values reported equal")
	}
}

func TestAdminDelta_Update(t *testing.T) {
	current := []Grant{
		{UserID: "u1", Email: "a@x.com"},
		{UserID: "u2", Email: "b@x.com"},
	}
	removeIDs, addEmails := AdminDelta(
		[]string{"a@x.com", "b@x.com"},
		[]string{"b@x.com", "c@x.com"},
		current,
	)
	if !slices.Equal(removeIDs, []string{"u1"}) {
		t.Errorf("removeIDs = %v, want [u1]", removeIDs)
	}
	if !slices.Equal(addEmails, []string{"c@x.com"}) {
		t.Errorf("addEmails = %v, want [c@x.com]", addEmails)
	}
}

func TestAdminDelta_Deletion(t *testing.T) {
	current := []Grant{{UserID: "u1", Email: "a@x.com"}}
	removeIDs, addEmails := AdminDelta([]string{"a@x.com", "never-granted@x.com"}, nil, current)
	if !slices.Equal(removeIDs, []string{"u1"}) {
		t.Errorf("removeIDs = %v, want [u1] (only granted emails revoke)", removeIDs)
	}
	if len(addEmails) != 0 {
		t.Errorf("addEmails = %v, want empty", addEmails)
	}
}

func TestAdminDelta_Creation(t *testing.T) {
	removeIDs, addEmails := AdminDelta(nil, []string{"a@x.com"}, nil)
	if len(removeIDs) != 0 {
		t.Errorf("removeIDs = %v, want empty", removeIDs)
	}
	if !slices.Equal(addEmails, []string{"a@x.com"}) {
		t.Errorf("addEmails = %v, want [a@x.com]", addEmails)
	}
}

func TestAdminDelta_AlreadyGrantedNotReAdded(t *testing.T) {
	current := []Grant{{UserID: "u2", Email: "b@x.com"}}
	_, addEmails := AdminDelta([]string{"b@x.com"}, []string{"b@x.com"}, current)
	if len(addEmails) != 0 {
		t.Errorf("addEmails = %v, want empty for already-granted email", addEmails)
	}
}
