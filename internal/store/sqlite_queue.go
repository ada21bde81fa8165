package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/critterhaus/burrow/internal/types"
)

// SyncMeta keys
const (
	SyncMetaLastSyncTime = "last_sync_time"
)

const insertQueueItemSQL = `
	INSERT INTO sync_queue (id, record_kind, entity_id, action, payload, enqueued_at, retry_count, last_error)
	VALUES (?, ?, ?, ?, ?, ?, 0, NULL)`

// Enqueue appends a pending mutation to the sync queue with a zero
// retry count.
func (s *SQLiteStore) Enqueue(ctx context.Context, item *types.SyncQueueItem) error {
	_, err := s.db.ExecContext(ctx, insertQueueItemSQL,
		item.ID, string(item.RecordKind), item.EntityID, string(item.Action),
		nullablePayload(item.Payload), formatTime(item.EnqueuedAt))
	if err != nil {
		return fmt.Errorf("enqueue sync item: %w", err)
	}
	return nil
}

// DequeueBatch returns up to limit pending items in enqueue order
// (ascending enqueued_at). Items whose retry count has reached
// maxRetries are excluded; they stay queued for manual cleanup.
func (s *SQLiteStore) DequeueBatch(ctx context.Context, limit, maxRetries int) ([]types.SyncQueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_kind, entity_id, action, payload, enqueued_at, retry_count, last_error
		FROM sync_queue
		WHERE retry_count < ?
		ORDER BY enqueued_at ASC, rowid ASC
		LIMIT ?`, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	items := make([]types.SyncQueueItem, 0)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanQueueItem(scanner interface{ Scan(...any) error }) (*types.SyncQueueItem, error) {
	var item types.SyncQueueItem
	var kind, action, enqueuedAt string
	var payload, lastError sql.NullString

	if err := scanner.Scan(&item.ID, &kind, &item.EntityID, &action,
		&payload, &enqueuedAt, &item.RetryCount, &lastError); err != nil {
		return nil, err
	}

	item.RecordKind = types.RecordKind(kind)
	item.Action = types.Action(action)
	item.EnqueuedAt = parseTime(enqueuedAt)
	if payload.Valid {
		item.Payload = []byte(payload.String)
	}
	if lastError.Valid {
		item.LastError = lastError.String
	}
	return &item, nil
}

// RecordFailure increments an item's retry count and stores the error
// message. The item stays queued.
func (s *SQLiteStore) RecordFailure(ctx context.Context, itemID, message string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sync_queue
		SET retry_count = retry_count + 1, last_error = ?
		WHERE id = ?`, message, itemID)
	if err != nil {
		return fmt.Errorf("record sync failure: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveQueueItem removes an item on confirmed remote acknowledgment.
func (s *SQLiteStore) RemoveQueueItem(ctx context.Context, itemID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("remove sync item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingCount returns the total number of queued items.
func (s *SQLiteStore) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sync queue: %w", err)
	}
	return count, nil
}

// FailedCount returns the number of items that have exhausted their
// retries and now require manual cleanup.
func (s *SQLiteStore) FailedCount(ctx context.Context, maxRetries int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE retry_count >= ?`, maxRetries).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed sync items: %w", err)
	}
	return count, nil
}

// QueueErrors returns the stored error messages of exhausted items,
// oldest first, bounded by limit.
func (s *SQLiteStore) QueueErrors(ctx context.Context, maxRetries, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT last_error FROM sync_queue
		WHERE retry_count >= ? AND last_error IS NOT NULL
		ORDER BY enqueued_at ASC
		LIMIT ?`, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync errors: %w", err)
	}
	defer rows.Close()

	msgs := make([]string, 0)
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, fmt.Errorf("scan sync error: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// QueueStats summarizes the queue for operator diagnostics: per-kind
// pending counts, the oldest pending timestamp, and the average retry
// count.
func (s *SQLiteStore) QueueStats(ctx context.Context) (*types.QueueStats, error) {
	stats := &types.QueueStats{PendingByKind: make(map[types.RecordKind]int)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_kind, COUNT(*) FROM sync_queue GROUP BY record_kind`)
	if err != nil {
		return nil, fmt.Errorf("query queue stats: %w", err)
	}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan queue stats: %w", err)
		}
		stats.PendingByKind[types.RecordKind(kind)] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue stats: %w", err)
	}

	var oldest sql.NullString
	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT MIN(enqueued_at), AVG(retry_count) FROM sync_queue`).Scan(&oldest, &avg)
	if err != nil {
		return nil, fmt.Errorf("aggregate queue stats: %w", err)
	}
	if oldest.Valid {
		t := parseTime(oldest.String)
		stats.OldestPending = &t
	}
	if avg.Valid {
		stats.AvgRetryCount = avg.Float64
	}

	return stats, nil
}

// GetSyncMeta retrieves a sync metadata value by key.
func (s *SQLiteStore) GetSyncMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM sync_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("sync meta key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get sync meta: %w", err)
	}
	return value, nil
}

// SetSyncMeta sets a sync metadata value.
func (s *SQLiteStore) SetSyncMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("set sync meta: %w", err)
	}
	return nil
}

// LastSyncTime reads the persisted last sync timestamp. Returns nil when
// no drain has completed yet.
func (s *SQLiteStore) LastSyncTime(ctx context.Context) (*time.Time, error) {
	value, err := s.GetSyncMeta(ctx, SyncMetaLastSyncTime)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := parseTime(value)
	return &t, nil
}

// nullablePayload converts a payload to a sql-friendly value.
func nullablePayload(p []byte) any {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}
