// Package domain holds the License entity as delivered by the CDC stream.
// Licenses are owned by the licensing authority; this engine only reads them
// and fans changes out to dependent projections.
package domain

import "time"

// License is one license record. Many Students and Users reference a license
// without owning it.
type License struct {
	ID               string            `json:"licenseId"`
	Expiration       time.Time         `json:"expiration"`
	Features         map[string]bool   `json:"features"`
	Details          Details           `json:"details"`
	StudentTemplates []Template        `json:"studentTemplates"`
	AppTemplates     []Template        `json:"appTemplates"`
	Tags             map[string]string `json:"tags"`
}

// Details carries license administration metadata.
type Details struct {
	// Admins is the list of admin email addresses. Emails may reference
	// users that are not registered yet; those simply never resolve.
	Admins []string `json:"admins"`
}

// Template describes a student or app template attached to the license.
// Compared by deep value equality when deciding whether to re-apply.
type Template struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Summary is the license-derived subset copied onto each Student. These are
// the only fields license fan-out may overwrite on a Student.
type Summary struct {
	Expiration time.Time       `json:"expiration"`
	Features   map[string]bool `json:"features"`
}

// Summarize extracts the student-facing summary of the license.
func (l *License) Summarize() Summary {
	return Summary{Expiration: l.Expiration, Features: l.Features}
}
