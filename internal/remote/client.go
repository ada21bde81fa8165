// Package remote talks to the Critterhaus backend. One idempotent
// endpoint exists per (record kind, action) pair; the engine only
// depends on success or failure, never on response payloads.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/critterhaus/burrow/internal/types"
)

// Client pushes a single queued mutation to the backend.
type Client interface {
	Push(ctx context.Context, item *types.SyncQueueItem) error
}

// collections maps record kinds to their REST collection names.
var collections = map[types.RecordKind]string{
	types.KindPet:       "pets",
	types.KindFeeding:   "feedings",
	types.KindEvolution: "evolutions",
	types.KindSession:   "sessions",
}

// HTTPClient is the production Client over the backend's JSON API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the backend at baseURL.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// HealthURL returns the backend health endpoint, used by the
// connectivity probe.
func (c *HTTPClient) HealthURL() string {
	return c.baseURL + "/api/v1/health"
}

// Push sends one mutation. Creates and updates POST the payload to the
// collection; deletes DELETE the entity resource. Both are idempotent
// on the backend, so replaying after an ambiguous failure is safe.
func (c *HTTPClient) Push(ctx context.Context, item *types.SyncQueueItem) error {
	collection, ok := collections[item.RecordKind]
	if !ok {
		return fmt.Errorf("unknown record kind %q", item.RecordKind)
	}

	var req *http.Request
	var err error
	switch item.Action {
	case types.ActionCreate, types.ActionUpdate:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost,
			fmt.Sprintf("%s/api/v1/%s", c.baseURL, collection),
			bytes.NewReader(item.Payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	case types.ActionDelete:
		req, err = http.NewRequestWithContext(ctx, http.MethodDelete,
			fmt.Sprintf("%s/api/v1/%s/%s", c.baseURL, collection, item.EntityID), nil)
	default:
		return fmt.Errorf("unknown action %q", item.Action)
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push %s %s: %w", item.Action, item.RecordKind, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push %s %s: server returned %d", item.Action, item.RecordKind, resp.StatusCode)
	}
	return nil
}
