// Package worker hosts the background coordinators of the sync agent.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/critterhaus/burrow/internal/connectivity"
	"github.com/critterhaus/burrow/internal/remote"
	"github.com/critterhaus/burrow/internal/store"
	"github.com/critterhaus/burrow/internal/types"
)

// QueueStore defines the store operations the coordinator needs.
// Implemented by store.SQLiteStore.
type QueueStore interface {
	DequeueBatch(ctx context.Context, limit, maxRetries int) ([]types.SyncQueueItem, error)
	RecordFailure(ctx context.Context, itemID, message string) error
	RemoveQueueItem(ctx context.Context, itemID string) error
	SetSyncMeta(ctx context.Context, key, value string) error
}

// SyncCoordinator drains the sync queue against the remote backend.
// Drains are single-flight: a connectivity event, the periodic ticker,
// and ForceSync all funnel through the same guard, so no two drains
// ever overlap and no item is processed twice in one cycle.
type SyncCoordinator struct {
	store       QueueStore
	remote      remote.Client
	conn        connectivity.Observer
	broadcaster *Broadcaster
	interval    time.Duration
	batchSize   int
	maxRetries  int

	mu      sync.Mutex
	syncing bool
}

// NewSyncCoordinator creates a coordinator. The broadcaster is notified
// after every completed drain.
func NewSyncCoordinator(
	s QueueStore,
	r remote.Client,
	conn connectivity.Observer,
	b *Broadcaster,
	interval time.Duration,
	batchSize int,
	maxRetries int,
) *SyncCoordinator {
	return &SyncCoordinator{
		store:       s,
		remote:      r,
		conn:        conn,
		broadcaster: b,
		interval:    interval,
		batchSize:   batchSize,
		maxRetries:  maxRetries,
	}
}

// Run starts the coordinator loop. A drain is attempted immediately
// when connectivity comes back and on every tick while online. Blocks
// until ctx is cancelled; an in-flight drain runs to completion over
// its fetched batch.
func (c *SyncCoordinator) Run(ctx context.Context) {
	slog.Info("sync coordinator started",
		"component", "worker",
		"worker", "sync-coordinator",
		"interval", c.interval.String(),
		"batch_size", c.batchSize,
		"max_retries", c.maxRetries,
	)

	c.conn.OnChange(func(online bool) {
		if !online {
			// Offline: in-flight drain finishes, no new ones start.
			c.broadcaster.Notify(ctx)
			return
		}
		go c.syncIfIdle(ctx)
	})

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync coordinator stopped",
				"component", "worker",
				"worker", "sync-coordinator",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.syncIfIdle(ctx)
		}
	}
}

// syncIfIdle runs a drain unless offline, shut down, or one is already
// in flight. The ctx check covers connectivity callbacks that fire
// after Run has returned.
func (c *SyncCoordinator) syncIfIdle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !c.conn.IsOnline() {
		return
	}
	if !c.begin() {
		return
	}
	defer c.end()
	c.drain(ctx)
}

// ForceSync runs a drain on demand and returns its result. Returns
// immediately with an explanatory error when offline or when a drain is
// already in flight; no item is ever processed twice.
func (c *SyncCoordinator) ForceSync(ctx context.Context) types.SyncResult {
	if !c.conn.IsOnline() {
		return types.SyncResult{
			Success: false,
			Errors:  []string{"cannot sync while offline"},
		}
	}
	if !c.begin() {
		return types.SyncResult{
			Success: false,
			Errors:  []string{"sync already in progress"},
		}
	}
	defer c.end()
	return c.drain(ctx)
}

// IsSyncing reports whether a drain is in flight.
func (c *SyncCoordinator) IsSyncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncing
}

// begin acquires the single-flight guard. Returns false if a drain is
// already running.
func (c *SyncCoordinator) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.syncing {
		return false
	}
	c.syncing = true
	if c.broadcaster != nil {
		c.broadcaster.SetSyncing(true)
	}
	return true
}

func (c *SyncCoordinator) end() {
	c.mu.Lock()
	c.syncing = false
	c.mu.Unlock()
	if c.broadcaster != nil {
		c.broadcaster.SetSyncing(false)
	}
}

// drain processes one batch of pending items, oldest first. A failed
// remote call is recorded on the item and never aborts the cycle.
// Items that exhausted their retries are excluded from the batch and
// surface only through status counts.
func (c *SyncCoordinator) drain(ctx context.Context) types.SyncResult {
	start := time.Now()
	result := types.SyncResult{Success: true}

	items, err := c.store.DequeueBatch(ctx, c.batchSize, c.maxRetries)
	if err != nil {
		slog.Error("failed to fetch sync batch",
			"component", "worker",
			"worker", "sync-coordinator",
			"error", err,
		)
		return types.SyncResult{
			Success: false,
			Errors:  []string{fmt.Sprintf("fetch sync batch: %v", err)},
		}
	}

	for i := range items {
		item := &items[i]
		if err := c.remote.Push(ctx, item); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s %s %s: %v", item.Action, item.RecordKind, item.EntityID, err))
			if recErr := c.store.RecordFailure(ctx, item.ID, err.Error()); recErr != nil {
				slog.Error("failed to record sync failure",
					"component", "worker",
					"worker", "sync-coordinator",
					"item_id", item.ID,
					"error", recErr,
				)
			}
			continue
		}
		if err := c.store.RemoveQueueItem(ctx, item.ID); err != nil {
			slog.Error("failed to remove acknowledged sync item",
				"component", "worker",
				"worker", "sync-coordinator",
				"item_id", item.ID,
				"error", err,
			)
			continue
		}
		result.SyncedCount++
	}

	result.Success = result.FailedCount == 0

	// The drain ran to completion over its batch: record the sync time
	// regardless of per-item outcomes.
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := c.store.SetSyncMeta(ctx, store.SyncMetaLastSyncTime, now); err != nil {
		slog.Error("failed to record last sync time",
			"component", "worker",
			"worker", "sync-coordinator",
			"error", err,
		)
	}

	if c.broadcaster != nil {
		c.broadcaster.Notify(ctx)
	}

	if len(items) > 0 {
		slog.Info("sync cycle completed",
			"component", "worker",
			"worker", "sync-coordinator",
			"synced", result.SyncedCount,
			"failed", result.FailedCount,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return result
}
