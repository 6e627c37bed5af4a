// Package programdir talks to the admissions platform directory, which
// owns user accounts and program enrollments.
package programdir

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type Client struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient returns a directory client for the given base URL. It
// implements both ProgramDirectory and UserDirectory.
func NewHTTPClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: baseURL, client: client}
}

func (c *Client) IsEnrolled(ctx context.Context, userID, programID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/programs/%s/enrollments/%s", c.baseURL, url.PathEscape(programID), url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to query directory: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("directory returned status: %d", resp.StatusCode)
	}
}

func (c *Client) EmailFor(ctx context.Context, userID string) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("directory returned status: %d", resp.StatusCode)
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode directory response: %w", err)
	}
	if body.Email == "" {
		return "", fmt.Errorf("directory returned no email for user %s", userID)
	}
	return body.Email, nil
}

// Static is an in-memory directory for development and tests.
type Static struct {
	Enrollments map[string][]string // programID -> userIDs
	Emails      map[string]string   // userID -> email
}

func (s *Static) IsEnrolled(_ context.Context, userID, programID string) (bool, error) {
	for _, id := range s.Enrollments[programID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Static) EmailFor(_ context.Context, userID string) (string, error) {
	email, ok := s.Emails[userID]
	if !ok {
		return "", fmt.Errorf("unknown user %s", userID)
	}
	return email, nil
}
