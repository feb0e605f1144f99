// Package mirror writes read-optimized copies of records to a durable blob
// store for external consumption (analytics, archival).
package mirror

import (
	"context"
	"fmt"
)

// Store is the blob store collaborator. Put must be idempotent: writing the
// same key/payload twice yields the same final blob.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
}

// LicenseKey is the blob key for a license mirror.
func LicenseKey(licenseID string) string {
	return fmt.Sprintf("licenses/%s.json", licenseID)
}

// StudentKey is the blob key for a student summary mirror, partitioned by
// license then student id.
func StudentKey(licenseID, studentID string) string {
	return fmt.Sprintf("students/license=%s/student=%s/info.json", licenseID, studentID)
}
