// Package domain holds the notification record shape as carried by the CDC
// stream. Records are authored upstream; this engine only derives per-user
// counters from their lifecycle.
package domain

// Record is one notification record. UserID may be empty on either side of a
// change event; the counter maintainer keys its transitions on that presence.
type Record struct {
	UserID    string         `json:"userId,omitempty"`
	StudentID string         `json:"studentId"`
	Detail    map[string]any `json:"detail,omitempty"`
}
