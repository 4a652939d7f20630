package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Verification is the identity backend's verdict on a token.
type Verification struct {
	Valid bool            `json:"valid"`
	User  json.RawMessage `json:"user,omitempty"`
}

// Client calls the external identity backend that owns authentication.
// The countdown service never inspects token contents; it only asks the
// backend whether a token is valid.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an identity client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetTimeout overrides the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// VerifyTeacherToken asks the backend whether the token belongs to a
// teacher.
func (c *Client) VerifyTeacherToken(ctx context.Context, token string) (*Verification, error) {
	return c.verify(ctx, verifyTeacherTokenEndpoint, token)
}

// VerifyStudentToken asks the backend whether the token belongs to a
// student.
func (c *Client) VerifyStudentToken(ctx context.Context, token string) (*Verification, error) {
	return c.verify(ctx, verifyStudentTokenEndpoint, token)
}

func (c *Client) verify(ctx context.Context, endpoint, token string) (*Verification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach identity backend: %w", err)
	}
	defer resp.Body.Close()

	// A rejection is a verdict, not a transport failure.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &Verification{Valid: false}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity backend returned status %d: %s", resp.StatusCode, string(body))
	}

	var verification Verification
	if err := json.NewDecoder(resp.Body).Decode(&verification); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}
	return &verification, nil
}
