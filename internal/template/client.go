// Package template provides a client for the external template engine that
// applies license templates to students.
package template

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	licensedomain "classtrack-sync/backend/internal/license/domain"
	"classtrack-sync/backend/internal/security"
	studentdomain "classtrack-sync/backend/internal/student/domain"
)

// Applier applies the license's student templates to one student.
type Applier interface {
	ProcessStudentTemplates(ctx context.Context, student *studentdomain.Student, licenseID string, templates []licensedomain.Template) error
}

// Client implements Applier over the template engine's HTTP API.
type Client struct {
	baseURL string
	tokens  *security.ServiceTokenProvider
	http    *http.Client
}

// NewClient returns a Client for the template engine at baseURL.
func NewClient(baseURL string, tokens *security.ServiceTokenProvider) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("template: base URL is empty")
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		http:    http.DefaultClient,
	}, nil
}

type applyRequest struct {
	StudentID string                   `json:"studentId"`
	LicenseID string                   `json:"licenseId"`
	Templates []licensedomain.Template `json:"templates"`
}

// ProcessStudentTemplates submits one student for template application.
// Re-applying an unchanged template set is harmless on the engine side, but
// callers avoid it via deep comparison to spare the collaborator the load.
func (c *Client) ProcessStudentTemplates(ctx context.Context, student *studentdomain.Student, licenseID string, templates []licensedomain.Template) error {
	payload, err := json.Marshal(applyRequest{
		StudentID: student.ID,
		LicenseID: licenseID,
		Templates: templates,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/templates/apply", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		tok, err := c.tokens.Issue("template")
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("template: apply for student %s returned %s", student.ID, resp.Status)
	}
	return nil
}
