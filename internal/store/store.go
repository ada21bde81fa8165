package store

import (
	"context"
	"time"

	"github.com/critterhaus/burrow/internal/types"
)

// Store defines the contract for local persistence: domain record CRUD,
// snapshot export/import, retention cleanup, and the durable sync queue.
type Store interface {
	PutPet(ctx context.Context, pet *types.Pet) error
	GetPet(ctx context.Context, id string) (*types.Pet, error)
	ListPetsByOwner(ctx context.Context, ownerID string) ([]types.Pet, error)
	DeletePet(ctx context.Context, id string) error

	PutFeeding(ctx context.Context, rec *types.FeedingRecord) error
	GetFeeding(ctx context.Context, id string) (*types.FeedingRecord, error)
	ListFeedingsByPet(ctx context.Context, petID string) ([]types.FeedingRecord, error)

	PutEvolution(ctx context.Context, rec *types.EvolutionRecord) error
	GetEvolution(ctx context.Context, id string) (*types.EvolutionRecord, error)
	ListEvolutionsByPet(ctx context.Context, petID string) ([]types.EvolutionRecord, error)

	PutSession(ctx context.Context, sess *types.GameSession) error
	GetSession(ctx context.Context, id string) (*types.GameSession, error)
	ListSessionsByUser(ctx context.Context, userID string, limit int) ([]types.GameSession, error)

	ExportAll(ctx context.Context) (*types.Snapshot, error)
	ImportAll(ctx context.Context, snap *types.Snapshot) error
	ClearOldData(ctx context.Context, retentionDays int) (int64, error)
	ClearAll(ctx context.Context) error
	Stats(ctx context.Context) (*types.StoreStats, error)

	Enqueue(ctx context.Context, item *types.SyncQueueItem) error
	DequeueBatch(ctx context.Context, limit, maxRetries int) ([]types.SyncQueueItem, error)
	RecordFailure(ctx context.Context, itemID, message string) error
	RemoveQueueItem(ctx context.Context, itemID string) error
	PendingCount(ctx context.Context) (int, error)
	FailedCount(ctx context.Context, maxRetries int) (int, error)
	QueueErrors(ctx context.Context, maxRetries, limit int) ([]string, error)
	QueueStats(ctx context.Context) (*types.QueueStats, error)
	GetSyncMeta(ctx context.Context, key string) (string, error)
	SetSyncMeta(ctx context.Context, key, value string) error
	LastSyncTime(ctx context.Context) (*time.Time, error)

	Close() error
}
