package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/critterhaus/burrow/internal/connectivity"
	"github.com/critterhaus/burrow/internal/types"
)

// statusErrorLimit caps the number of error strings carried in a status.
const statusErrorLimit = 20

// StatusStore defines the store reads needed to derive a SyncStatus.
// Implemented by store.SQLiteStore.
type StatusStore interface {
	PendingCount(ctx context.Context) (int, error)
	FailedCount(ctx context.Context, maxRetries int) (int, error)
	QueueErrors(ctx context.Context, maxRetries, limit int) ([]string, error)
	LastSyncTime(ctx context.Context) (*time.Time, error)
}

// Broadcaster derives SyncStatus on demand and pushes it to any number
// of subscribers. Status is never persisted; every Notify recomputes it
// from the queue and the connectivity flag.
type Broadcaster struct {
	store      StatusStore
	conn       connectivity.Observer
	maxRetries int
	syncing    atomic.Bool

	mu        sync.Mutex
	listeners map[int]func(types.SyncStatus)
	nextID    int
}

// NewBroadcaster creates a broadcaster over the given store and
// connectivity observer.
func NewBroadcaster(s StatusStore, conn connectivity.Observer, maxRetries int) *Broadcaster {
	return &Broadcaster{
		store:      s,
		conn:       conn,
		maxRetries: maxRetries,
		listeners:  make(map[int]func(types.SyncStatus)),
	}
}

// SetSyncing records whether a drain is in flight. Called only by the
// sync coordinator.
func (b *Broadcaster) SetSyncing(v bool) {
	b.syncing.Store(v)
}

// Subscribe registers a listener and returns an unsubscribe function.
func (b *Broadcaster) Subscribe(fn func(types.SyncStatus)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Status recomputes the current SyncStatus from the queue and
// connectivity state. Reads never mutate anything.
func (b *Broadcaster) Status(ctx context.Context) (types.SyncStatus, error) {
	status := types.SyncStatus{
		IsOnline:  b.conn.IsOnline(),
		IsSyncing: b.syncing.Load(),
	}

	pending, err := b.store.PendingCount(ctx)
	if err != nil {
		return status, err
	}
	status.PendingCount = pending

	failed, err := b.store.FailedCount(ctx, b.maxRetries)
	if err != nil {
		return status, err
	}
	status.FailedCount = failed

	if failed > 0 {
		errs, err := b.store.QueueErrors(ctx, b.maxRetries, statusErrorLimit)
		if err != nil {
			return status, err
		}
		status.Errors = errs
	}

	lastSync, err := b.store.LastSyncTime(ctx)
	if err != nil {
		return status, err
	}
	status.LastSyncTime = lastSync

	return status, nil
}

// Notify recomputes the status and pushes it to every listener. A
// panicking listener is recovered individually and never blocks
// delivery to the rest.
func (b *Broadcaster) Notify(ctx context.Context) {
	status, err := b.Status(ctx)
	if err != nil {
		slog.Error("failed to compute sync status",
			"component", "broadcaster",
			"error", err,
		)
		return
	}

	b.mu.Lock()
	listeners := make([]func(types.SyncStatus), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		b.deliver(fn, status)
	}
}

func (b *Broadcaster) deliver(fn func(types.SyncStatus), status types.SyncStatus) {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.Error("status listener panicked",
				"component", "broadcaster",
				"error", recovered,
			)
		}
	}()
	fn(status)
}
