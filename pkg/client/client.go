// Package client is the Go client for the burrow control API. The
// Critterhaus UI process talks to its local agent through this package
// instead of hand-rolling HTTP calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrNotFound is returned when the agent reports a missing record.
var ErrNotFound = errors.New("record not found")

// Config holds client settings.
type Config struct {
	// BaseURL of the local agent, e.g. http://127.0.0.1:7410.
	BaseURL string
	// APIKey is sent as a Bearer token when set.
	APIKey string
	// Timeout applies per request. Defaults to 10 seconds.
	Timeout time.Duration
}

// Client talks to a running burrow agent.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client for the agent at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// problem mirrors the agent's RFC 7807 error body.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
		}
		var p problem
		if decodeErr := json.NewDecoder(resp.Body).Decode(&p); decodeErr == nil && p.Detail != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, p.Detail, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: agent returned %d", method, path, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Status returns the agent's current sync status.
func (c *Client) Status(ctx context.Context) (*SyncStatus, error) {
	var status SyncStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Sync asks the agent to drain its queue now.
func (c *Client) Sync(ctx context.Context) (*SyncResult, error) {
	var result SyncResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/sync", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SavePet writes a pet through the agent. The returned pet carries the
// agent-assigned id and timestamps.
func (c *Client) SavePet(ctx context.Context, pet *Pet) (*Pet, error) {
	var saved Pet
	if err := c.do(ctx, http.MethodPut, "/api/v1/records/pet", pet, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// GetPet retrieves a pet by id.
func (c *Client) GetPet(ctx context.Context, id string) (*Pet, error) {
	var pet Pet
	if err := c.do(ctx, http.MethodGet, "/api/v1/records/pet/"+id, nil, &pet); err != nil {
		return nil, err
	}
	return &pet, nil
}

// ListPets returns a user's pets.
func (c *Client) ListPets(ctx context.Context, ownerID string) ([]Pet, error) {
	var pets []Pet
	path := "/api/v1/records/pet?owner=" + ownerID
	if err := c.do(ctx, http.MethodGet, path, nil, &pets); err != nil {
		return nil, err
	}
	return pets, nil
}

// DeletePet removes a pet and queues the remote deletion.
func (c *Client) DeletePet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/records/pet/"+id, nil, nil)
}

// RecordFeeding writes a feeding event through the agent.
func (c *Client) RecordFeeding(ctx context.Context, rec *FeedingRecord) (*FeedingRecord, error) {
	var saved FeedingRecord
	if err := c.do(ctx, http.MethodPut, "/api/v1/records/feeding", rec, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// FeedingHistory returns a pet's feeding history, newest first.
func (c *Client) FeedingHistory(ctx context.Context, petID string) ([]FeedingRecord, error) {
	var recs []FeedingRecord
	path := "/api/v1/records/feeding?owner=" + petID
	if err := c.do(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// RecordEvolution writes a stage transition through the agent.
func (c *Client) RecordEvolution(ctx context.Context, rec *EvolutionRecord) (*EvolutionRecord, error) {
	var saved EvolutionRecord
	if err := c.do(ctx, http.MethodPut, "/api/v1/records/evolution", rec, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// RecordSession writes a completed game session through the agent.
func (c *Client) RecordSession(ctx context.Context, sess *GameSession) (*GameSession, error) {
	var saved GameSession
	if err := c.do(ctx, http.MethodPut, "/api/v1/records/session", sess, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// RecentSessions returns a user's sessions, newest first, bounded by
// limit when positive.
func (c *Client) RecentSessions(ctx context.Context, userID string, limit int) ([]GameSession, error) {
	var sessions []GameSession
	path := "/api/v1/records/session?owner=" + userID
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Export returns the agent's full data snapshot.
func (c *Client) Export(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/export", nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("export: agent returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}
	return string(data), nil
}

// Import applies a snapshot to the agent's store.
func (c *Client) Import(ctx context.Context, snapshot string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/import", bytes.NewReader([]byte(snapshot)))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("import: agent returned %d", resp.StatusCode)
	}
	return nil
}
