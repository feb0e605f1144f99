// Package domain holds team membership records. A Student with zero
// non-removed memberships is orphaned and eligible for lifecycle removal.
package domain

// Membership links a user to a student's team. Removed memberships are kept
// as tombstones rather than deleted.
type Membership struct {
	StudentID string `json:"studentId"`
	UserID    string `json:"userId"`
	Removed   bool   `json:"removed"`
}
