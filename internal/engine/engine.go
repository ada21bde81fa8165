// Package engine is the surface the surrounding application talks to:
// write-through record writes, force-sync, status subscription, and
// bulk export/import/cleanup. One Engine is constructed at startup and
// passed by reference to consumers.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/critterhaus/burrow/internal/backup"
	"github.com/critterhaus/burrow/internal/store"
	"github.com/critterhaus/burrow/internal/types"
	"github.com/critterhaus/burrow/internal/worker"
)

// Engine ties the local store, sync coordinator, and status broadcaster
// together behind the application-facing API.
type Engine struct {
	store       store.Store
	coordinator *worker.SyncCoordinator
	broadcaster *worker.Broadcaster
	uploader    backup.Uploader
}

// New creates an Engine. The uploader may be a NoopUploader when
// offsite backup is not configured.
func New(s store.Store, c *worker.SyncCoordinator, b *worker.Broadcaster, u backup.Uploader) *Engine {
	if u == nil {
		u = &backup.NoopUploader{}
	}
	return &Engine{store: s, coordinator: c, broadcaster: b, uploader: u}
}

// enqueue appends the outbound mutation for a write-through record
// write. Every remote-bound write gets exactly one queue item, which
// stays open until the backend acknowledges it.
func (e *Engine) enqueue(ctx context.Context, kind types.RecordKind, action types.Action, entityID string, record any) error {
	var payload []byte
	if record != nil {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal sync payload: %w", err)
		}
		payload = data
	}

	return e.store.Enqueue(ctx, &types.SyncQueueItem{
		ID:         ulid.Make().String(),
		RecordKind: kind,
		EntityID:   entityID,
		Action:     action,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	})
}

// SavePet writes a pet locally and queues it for remote sync. A pet
// without an id is assigned one and queued as a create; an existing id
// is queued as an update.
func (e *Engine) SavePet(ctx context.Context, pet *types.Pet) error {
	now := time.Now().UTC()
	action := types.ActionUpdate

	if pet.ID == "" {
		pet.ID = ulid.Make().String()
		action = types.ActionCreate
	} else if _, err := e.store.GetPet(ctx, pet.ID); errors.Is(err, store.ErrNotFound) {
		action = types.ActionCreate
	} else if err != nil {
		return err
	}

	if pet.CreatedAt.IsZero() {
		pet.CreatedAt = now
	}
	pet.UpdatedAt = now

	if err := e.store.PutPet(ctx, pet); err != nil {
		return err
	}
	return e.enqueue(ctx, types.KindPet, action, pet.ID, pet)
}

// DeletePet removes a pet locally and queues the deletion.
func (e *Engine) DeletePet(ctx context.Context, id string) error {
	if err := e.store.DeletePet(ctx, id); err != nil {
		return err
	}
	return e.enqueue(ctx, types.KindPet, types.ActionDelete, id, nil)
}

// GetPet retrieves a pet by id.
func (e *Engine) GetPet(ctx context.Context, id string) (*types.Pet, error) {
	return e.store.GetPet(ctx, id)
}

// ListPets returns a user's pets in insertion order.
func (e *Engine) ListPets(ctx context.Context, ownerID string) ([]types.Pet, error) {
	return e.store.ListPetsByOwner(ctx, ownerID)
}

// RecordFeeding writes a feeding event locally and queues it.
func (e *Engine) RecordFeeding(ctx context.Context, rec *types.FeedingRecord) error {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.FedAt.IsZero() {
		rec.FedAt = time.Now().UTC()
	}
	if err := e.store.PutFeeding(ctx, rec); err != nil {
		return err
	}
	return e.enqueue(ctx, types.KindFeeding, types.ActionCreate, rec.ID, rec)
}

// GetFeeding retrieves a feeding record by id.
func (e *Engine) GetFeeding(ctx context.Context, id string) (*types.FeedingRecord, error) {
	return e.store.GetFeeding(ctx, id)
}

// FeedingHistory returns a pet's feeding history, newest first.
func (e *Engine) FeedingHistory(ctx context.Context, petID string) ([]types.FeedingRecord, error) {
	return e.store.ListFeedingsByPet(ctx, petID)
}

// RecordEvolution writes a stage transition locally and queues it.
func (e *Engine) RecordEvolution(ctx context.Context, rec *types.EvolutionRecord) error {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.EvolvedAt.IsZero() {
		rec.EvolvedAt = time.Now().UTC()
	}
	if err := e.store.PutEvolution(ctx, rec); err != nil {
		return err
	}
	return e.enqueue(ctx, types.KindEvolution, types.ActionCreate, rec.ID, rec)
}

// GetEvolution retrieves an evolution record by id.
func (e *Engine) GetEvolution(ctx context.Context, id string) (*types.EvolutionRecord, error) {
	return e.store.GetEvolution(ctx, id)
}

// EvolutionHistory returns a pet's evolution history, newest first.
func (e *Engine) EvolutionHistory(ctx context.Context, petID string) ([]types.EvolutionRecord, error) {
	return e.store.ListEvolutionsByPet(ctx, petID)
}

// RecordSession writes a completed game session locally and queues it.
func (e *Engine) RecordSession(ctx context.Context, sess *types.GameSession) error {
	if sess.ID == "" {
		sess.ID = ulid.Make().String()
	}
	if sess.PlayedAt.IsZero() {
		sess.PlayedAt = time.Now().UTC()
	}
	if err := e.store.PutSession(ctx, sess); err != nil {
		return err
	}
	return e.enqueue(ctx, types.KindSession, types.ActionCreate, sess.ID, sess)
}

// GetSession retrieves a game session by id.
func (e *Engine) GetSession(ctx context.Context, id string) (*types.GameSession, error) {
	return e.store.GetSession(ctx, id)
}

// RecentSessions returns a user's sessions, newest first, bounded by
// limit when positive.
func (e *Engine) RecentSessions(ctx context.Context, userID string, limit int) ([]types.GameSession, error) {
	return e.store.ListSessionsByUser(ctx, userID, limit)
}

// ForceSync runs one drain cycle on demand.
func (e *Engine) ForceSync(ctx context.Context) types.SyncResult {
	return e.coordinator.ForceSync(ctx)
}

// Status returns the current sync status.
func (e *Engine) Status(ctx context.Context) (types.SyncStatus, error) {
	return e.broadcaster.Status(ctx)
}

// SubscribeStatus registers a status listener and returns an
// unsubscribe function.
func (e *Engine) SubscribeStatus(fn func(types.SyncStatus)) func() {
	return e.broadcaster.Subscribe(fn)
}

// ExportAllData serializes every record kind into one snapshot string.
func (e *Engine) ExportAllData(ctx context.Context) (string, error) {
	snap, err := e.store.ExportAll(ctx)
	if err != nil {
		return "", err
	}
	data, err := types.EncodeSnapshot(snap)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportData validates and applies a snapshot string. A malformed
// payload is rejected wholesale and the store is left unchanged.
func (e *Engine) ImportData(ctx context.Context, data string) error {
	snap, err := types.DecodeSnapshot([]byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrMalformedSnapshot, err)
	}
	if err := e.store.ImportAll(ctx, snap); err != nil {
		return err
	}
	slog.Info("snapshot imported",
		"component", "engine",
		"records", snap.RecordCount(),
	)
	return nil
}

// ClearOldData deletes history records older than the retention window,
// never touching records still referenced by a queued sync item.
func (e *Engine) ClearOldData(ctx context.Context, retentionDays int) (int64, error) {
	deleted, err := e.store.ClearOldData(ctx, retentionDays)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Info("retention cleanup completed",
			"component", "engine",
			"deleted", deleted,
			"retention_days", retentionDays,
		)
	}
	return deleted, nil
}

// ClearAllData removes every record and queue item.
func (e *Engine) ClearAllData(ctx context.Context) error {
	return e.store.ClearAll(ctx)
}

// Backup exports all data and uploads the snapshot offsite. Returns the
// stored object key, or backup.ErrNotConfigured when backup is off.
func (e *Engine) Backup(ctx context.Context, deviceID string) (string, error) {
	data, err := e.ExportAllData(ctx)
	if err != nil {
		return "", err
	}
	key, err := e.uploader.Upload(ctx, deviceID, []byte(data))
	if err != nil {
		return "", err
	}
	slog.Info("snapshot backed up",
		"component", "engine",
		"key", key,
	)
	return key, nil
}

// Stats returns per-kind record counts.
func (e *Engine) Stats(ctx context.Context) (*types.StoreStats, error) {
	return e.store.Stats(ctx)
}

// QueueStats returns operator-facing queue diagnostics.
func (e *Engine) QueueStats(ctx context.Context) (*types.QueueStats, error) {
	return e.store.QueueStats(ctx)
}
