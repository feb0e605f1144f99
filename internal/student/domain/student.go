// Package domain holds the Student entity. Students reference a License and
// carry a license-derived summary (copied, not owned) next to fields the
// Student owns outright; license fan-out must never touch the owned fields.
package domain

import (
	"time"

	licensedomain "classtrack-sync/backend/internal/license/domain"
)

// Student is one student record from the document store.
type Student struct {
	ID        string `json:"studentId"`
	LicenseID string `json:"license"`

	// LicenseSummary is derived from the License and overwritten wholesale
	// by license fan-out.
	LicenseSummary licensedomain.Summary `json:"licenseSummary"`

	// Per-student override flags, owned by the Student. License fan-out
	// leaves these untouched.
	FullYear     bool `json:"fullYear"`
	Flexible     bool `json:"flexible"`
	Transferable bool `json:"transferable"`
	Archived     bool `json:"archived"`

	Tags      map[string]string `json:"tags,omitempty"`
	Behaviors []Behavior        `json:"behaviors,omitempty"`
	Responses []Response        `json:"responses,omitempty"`
	Documents []Document        `json:"documents,omitempty"`

	LastActivity time.Time `json:"lastActivity"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// Behavior is a tracked behavior definition, optionally with ABC metadata.
type Behavior struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	ABC  *ABC   `json:"abc,omitempty"`
}

// ABC is antecedent/behavior/consequence metadata for one behavior.
type ABC struct {
	Antecedents  []string `json:"antecedents,omitempty"`
	Consequences []string `json:"consequences,omitempty"`
}

// Response is a tracked response definition.
type Response struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Document is a reference to a document attached to the student.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BehaviorByID returns the behavior with the given id, or nil.
func (s *Student) BehaviorByID(id string) *Behavior {
	for i := range s.Behaviors {
		if s.Behaviors[i].ID == id {
			return &s.Behaviors[i]
		}
	}
	return nil
}

// ResponseByID returns the response with the given id, or nil.
func (s *Student) ResponseByID(id string) *Response {
	for i := range s.Responses {
		if s.Responses[i].ID == id {
			return &s.Responses[i]
		}
	}
	return nil
}
