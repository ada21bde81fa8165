package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/critterhaus/burrow/internal/types"
)

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   string
}

func newTestServer(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	requests := &[]recordedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		if r.ContentLength > 0 {
			r.Body.Read(body)
		}
		mu.Lock()
		*requests = append(*requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func TestHTTPClient_PushCreate(t *testing.T) {
	server, requests := newTestServer(t, http.StatusCreated)
	client := NewHTTPClient(server.URL, "test-key", 5*time.Second)

	err := client.Push(context.Background(), &types.SyncQueueItem{
		ID:         "q-1",
		RecordKind: types.KindPet,
		EntityID:   "pet-1",
		Action:     types.ActionCreate,
		Payload:    []byte(`{"id":"pet-1","name":"Chompy"}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(*requests) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if req.method != http.MethodPost {
		t.Errorf("Expected POST, got %s", req.method)
	}
	if req.path != "/api/v1/pets" {
		t.Errorf("Expected /api/v1/pets, got %s", req.path)
	}
	if req.auth != "Bearer test-key" {
		t.Errorf("Expected bearer auth, got %q", req.auth)
	}
	if !strings.Contains(req.body, "Chompy") {
		t.Errorf("Expected payload forwarded, got %q", req.body)
	}
}

func TestHTTPClient_PushDelete(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK)
	client := NewHTTPClient(server.URL, "", 5*time.Second)

	err := client.Push(context.Background(), &types.SyncQueueItem{
		ID:         "q-1",
		RecordKind: types.KindSession,
		EntityID:   "sess-1",
		Action:     types.ActionDelete,
	})
	if err != nil {
		t.Fatal(err)
	}

	req := (*requests)[0]
	if req.method != http.MethodDelete {
		t.Errorf("Expected DELETE, got %s", req.method)
	}
	if req.path != "/api/v1/sessions/sess-1" {
		t.Errorf("Expected entity path, got %s", req.path)
	}
	if req.auth != "" {
		t.Errorf("Expected no auth header without key, got %q", req.auth)
	}
}

func TestHTTPClient_PushServerError(t *testing.T) {
	server, _ := newTestServer(t, http.StatusInternalServerError)
	client := NewHTTPClient(server.URL, "", 5*time.Second)

	err := client.Push(context.Background(), &types.SyncQueueItem{
		ID:         "q-1",
		RecordKind: types.KindFeeding,
		EntityID:   "feed-1",
		Action:     types.ActionCreate,
		Payload:    []byte(`{}`),
	})
	if err == nil {
		t.Fatal("Expected error on 500")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestHTTPClient_PushConnectionRefused(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "", time.Second)

	err := client.Push(context.Background(), &types.SyncQueueItem{
		ID:         "q-1",
		RecordKind: types.KindPet,
		EntityID:   "pet-1",
		Action:     types.ActionCreate,
		Payload:    []byte(`{}`),
	})
	if err == nil {
		t.Fatal("Expected error when backend unreachable")
	}
}

func TestHTTPClient_PushUnknownKind(t *testing.T) {
	client := NewHTTPClient("http://example.invalid", "", time.Second)

	err := client.Push(context.Background(), &types.SyncQueueItem{
		ID:         "q-1",
		RecordKind: types.RecordKind("accessory"),
		Action:     types.ActionCreate,
	})
	if err == nil {
		t.Fatal("Expected error for unknown kind")
	}
}

func TestHTTPClient_HealthURL(t *testing.T) {
	client := NewHTTPClient("https://api.critterhaus.dev", "", time.Second)
	if got := client.HealthURL(); got != "https://api.critterhaus.dev/api/v1/health" {
		t.Errorf("Unexpected health URL %q", got)
	}
}
