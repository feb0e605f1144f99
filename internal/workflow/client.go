// Package workflow provides a client to start executions on the external
// workflow orchestrator.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"classtrack-sync/backend/internal/security"
)

// Starter starts a workflow execution. Failures surface to the caller; the
// engine performs no internal retry.
type Starter interface {
	Start(ctx context.Context, workflowID string, input map[string]string) error
}

// Client implements Starter over the orchestrator's HTTP API.
type Client struct {
	baseURL string
	tokens  *security.ServiceTokenProvider
	http    *http.Client
}

// NewClient returns a Client for the orchestrator at baseURL
// (e.g. http://localhost:4200). tokens may be nil for unauthenticated
// local setups.
func NewClient(baseURL string, tokens *security.ServiceTokenProvider) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("workflow: base URL is empty")
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		http:    http.DefaultClient,
	}, nil
}

// startRequest is the orchestrator's execution-start body.
type startRequest struct {
	RequestID string            `json:"requestId"`
	Input     map[string]string `json:"input"`
}

// Start submits one execution of workflowID with the given input.
// The request id makes resubmission after a redelivered event harmless:
// orchestrators deduplicate by workflow + input identity on their side.
func (c *Client) Start(ctx context.Context, workflowID string, input map[string]string) error {
	body := startRequest{RequestID: uuid.New().String(), Input: input}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/v1/workflows/%s/executions", c.baseURL, workflowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		tok, err := c.tokens.Issue("workflow")
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
		return fmt.Errorf("workflow: start %s returned %s", workflowID, resp.Status)
	}
	return nil
}
