package store

import (
	"context"
	"time"

	"github.com/critterhaus/burrow/internal/types"
)

// mockStore is a compile-time check that the Store interface can be implemented.
type mockStore struct{}

var _ Store = (*mockStore)(nil)

func (m *mockStore) PutPet(ctx context.Context, pet *types.Pet) error { return nil }
func (m *mockStore) GetPet(ctx context.Context, id string) (*types.Pet, error) {
	return nil, nil
}
func (m *mockStore) ListPetsByOwner(ctx context.Context, ownerID string) ([]types.Pet, error) {
	return nil, nil
}
func (m *mockStore) DeletePet(ctx context.Context, id string) error { return nil }
func (m *mockStore) PutFeeding(ctx context.Context, rec *types.FeedingRecord) error {
	return nil
}
func (m *mockStore) GetFeeding(ctx context.Context, id string) (*types.FeedingRecord, error) {
	return nil, nil
}
func (m *mockStore) ListFeedingsByPet(ctx context.Context, petID string) ([]types.FeedingRecord, error) {
	return nil, nil
}
func (m *mockStore) PutEvolution(ctx context.Context, rec *types.EvolutionRecord) error {
	return nil
}
func (m *mockStore) GetEvolution(ctx context.Context, id string) (*types.EvolutionRecord, error) {
	return nil, nil
}
func (m *mockStore) ListEvolutionsByPet(ctx context.Context, petID string) ([]types.EvolutionRecord, error) {
	return nil, nil
}
func (m *mockStore) PutSession(ctx context.Context, sess *types.GameSession) error {
	return nil
}
func (m *mockStore) GetSession(ctx context.Context, id string) (*types.GameSession, error) {
	return nil, nil
}
func (m *mockStore) ListSessionsByUser(ctx context.Context, userID string, limit int) ([]types.GameSession, error) {
	return nil, nil
}
func (m *mockStore) ExportAll(ctx context.Context) (*types.Snapshot, error) { return nil, nil }
func (m *mockStore) ImportAll(ctx context.Context, snap *types.Snapshot) error {
	return nil
}
func (m *mockStore) ClearOldData(ctx context.Context, retentionDays int) (int64, error) {
	return 0, nil
}
func (m *mockStore) ClearAll(ctx context.Context) error                  { return nil }
func (m *mockStore) Stats(ctx context.Context) (*types.StoreStats, error) { return nil, nil }
func (m *mockStore) Enqueue(ctx context.Context, item *types.SyncQueueItem) error {
	return nil
}
func (m *mockStore) DequeueBatch(ctx context.Context, limit, maxRetries int) ([]types.SyncQueueItem, error) {
	return nil, nil
}
func (m *mockStore) RecordFailure(ctx context.Context, itemID, message string) error {
	return nil
}
func (m *mockStore) RemoveQueueItem(ctx context.Context, itemID string) error { return nil }
func (m *mockStore) PendingCount(ctx context.Context) (int, error)            { return 0, nil }
func (m *mockStore) FailedCount(ctx context.Context, maxRetries int) (int, error) {
	return 0, nil
}
func (m *mockStore) QueueErrors(ctx context.Context, maxRetries, limit int) ([]string, error) {
	return nil, nil
}
func (m *mockStore) QueueStats(ctx context.Context) (*types.QueueStats, error) {
	return nil, nil
}
func (m *mockStore) GetSyncMeta(ctx context.Context, key string) (string, error) {
	return "", nil
}
func (m *mockStore) SetSyncMeta(ctx context.Context, key, value string) error { return nil }
func (m *mockStore) LastSyncTime(ctx context.Context) (*time.Time, error)     { return nil, nil }
func (m *mockStore) Close() error                                             { return nil }
