// Package domain holds the App (device) projection. Apps are derived
// entirely from a Student plus the app's own device-binding metadata; this
// engine regenerates them and nothing else authors them.
package domain

// App is one device projection, identified by (studentId, appId).
type App struct {
	StudentID string `json:"studentId"`
	AppID     string `json:"appId"`
	// LicenseID is a denormalized copy of the student's license reference.
	LicenseID string `json:"license"`
	DeviceID  string `json:"deviceId"`
	Config    Config `json:"config"`
	PII       PII    `json:"pii"`
}

// Config is the app's own tracked-item configuration. It selects which of
// the student's behaviors/responses/services the device tracks; the engine
// reads it but never rewrites the tracked id sets.
type Config struct {
	Behaviors []TrackedItem `json:"behaviors,omitempty"`
	Responses []TrackedItem `json:"responses,omitempty"`
	Services  []TrackedItem `json:"services,omitempty"`
}

// TrackedItem is one tracked id with device-local display settings.
type TrackedItem struct {
	ID    string `json:"id"`
	Alert bool   `json:"alert,omitempty"`
	Order int    `json:"order,omitempty"`
}

// PII is the display record pushed to the device: names for tracked items
// only, so a device never sees definitions it does not track.
type PII struct {
	BehaviorNames []NamedItem `json:"behaviorNames,omitempty"`
	ResponseNames []NamedItem `json:"responseNames,omitempty"`
	ServiceNames  []NamedItem `json:"serviceNames,omitempty"`
}

// NamedItem is a display name for a tracked id, with ABC metadata merged in
// for behaviors that carry it.
type NamedItem struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Antecedents  []string `json:"antecedents,omitempty"`
	Consequences []string `json:"consequences,omitempty"`
}
