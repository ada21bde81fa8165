package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/critterhaus/burrow/internal/api"
	"github.com/critterhaus/burrow/internal/connectivity"
	"github.com/critterhaus/burrow/internal/engine"
	"github.com/critterhaus/burrow/internal/store"
	"github.com/critterhaus/burrow/internal/types"
	"github.com/critterhaus/burrow/internal/worker"
)

type okRemote struct{}

func (okRemote) Push(ctx context.Context, item *types.SyncQueueItem) error {
	return nil
}

// newTestAgent runs a real agent router on an httptest server.
func newTestAgent(t *testing.T, apiKey string) *Client {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	conn := connectivity.NewManual(true)
	broadcaster := worker.NewBroadcaster(db, conn, 3)
	coordinator := worker.NewSyncCoordinator(db, okRemote{}, conn, broadcaster,
		time.Minute, 50, 3)
	eng := engine.New(db, coordinator, broadcaster, nil)

	server := httptest.NewServer(api.NewRouter(api.NewHandler(eng, apiKey, "test", 30)))
	t.Cleanup(server.Close)

	c, err := New(Config{BaseURL: server.URL, APIKey: apiKey})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClient_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("Expected error without BaseURL")
	}
}

func TestClient_PetLifecycle(t *testing.T) {
	c := newTestAgent(t, "")
	ctx := context.Background()

	saved, err := c.SavePet(ctx, &Pet{
		OwnerID: "user-1", Name: "Chompy", Species: "axolotl",
		Happiness: 80, Hunger: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Fatal("Expected agent-assigned id")
	}

	got, err := c.GetPet(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Chompy" {
		t.Errorf("Expected persisted pet, got %q", got.Name)
	}

	pets, err := c.ListPets(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pets) != 1 {
		t.Errorf("Expected 1 pet, got %d", len(pets))
	}

	if err := c.DeletePet(ctx, saved.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetPet(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestClient_StatusAndSync(t *testing.T) {
	c := newTestAgent(t, "")
	ctx := context.Background()

	if _, err := c.RecordFeeding(ctx, &FeedingRecord{
		PetID: "pet-1", FoodType: "pellets", Amount: 1,
	}); err != nil {
		t.Fatal(err)
	}

	status, err := c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.PendingCount != 1 {
		t.Errorf("Expected 1 pending, got %d", status.PendingCount)
	}

	result, err := c.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.SyncedCount != 1 {
		t.Errorf("Expected 1 synced, got %+v", result)
	}

	status, err = c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.PendingCount != 0 {
		t.Errorf("Expected drained queue, got %d", status.PendingCount)
	}
}

func TestClient_AuthForwarded(t *testing.T) {
	c := newTestAgent(t, "secret")

	if _, err := c.Status(context.Background()); err != nil {
		t.Errorf("Expected authenticated request to succeed, got %v", err)
	}

	bad, err := New(Config{BaseURL: c.baseURL, APIKey: "wrong"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bad.Status(context.Background()); err == nil {
		t.Error("Expected error with wrong key")
	}
}

func TestClient_ExportImport(t *testing.T) {
	c := newTestAgent(t, "")
	ctx := context.Background()

	if _, err := c.SavePet(ctx, &Pet{
		OwnerID: "user-1", Name: "Chompy", Species: "axolotl",
	}); err != nil {
		t.Fatal(err)
	}

	snapshot, err := c.Export(ctx)
	if err != nil {
		t.Fatal(err)
	}

	other := newTestAgent(t, "")
	if err := other.Import(ctx, snapshot); err != nil {
		t.Fatal(err)
	}
	pets, err := other.ListPets(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pets) != 1 {
		t.Errorf("Expected imported pet, got %d", len(pets))
	}
}

func TestClient_ValidationErrorSurfaced(t *testing.T) {
	c := newTestAgent(t, "")

	_, err := c.SavePet(context.Background(), &Pet{Species: "axolotl"})
	if err == nil {
		t.Fatal("Expected validation error")
	}
}

func TestClient_RecentSessionsLimit(t *testing.T) {
	c := newTestAgent(t, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.RecordSession(ctx, &GameSession{
			UserID: "user-1", GameType: "fetch", Score: i * 10,
		}); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := c.RecentSessions(ctx, "user-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(sessions))
	}
}
