// Package domain holds the User entity and its derived records: admin
// associations granted from license admin lists, and per-student notification
// counters maintained by this engine.
package domain

// User is one user record. Users are authored upstream; this engine only
// resolves emails to ids and maintains derived records.
type User struct {
	ID    string `json:"userId"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// AdminAssociation grants a user admin rights on a license. Derived from the
// license's admin email list; never authored directly.
type AdminAssociation struct {
	UserID    string `json:"userId"`
	LicenseID string `json:"licenseId"`
	Email     string `json:"email"`
}

// NotificationCounter is the per-(user, student) unread counter. Count is
// never negative; an entry at zero with AwaitingResponse false is removed.
type NotificationCounter struct {
	UserID           string `json:"userId"`
	StudentID        string `json:"studentId"`
	Count            int    `json:"count"`
	AwaitingResponse bool   `json:"awaitingResponse"`
}
