// Package types defines the domain records persisted by the local store
// and the shared sync engine types (queue items, status, results).
package types

import (
	"time"
)

// RecordKind identifies a domain record table.
type RecordKind string

const (
	KindPet       RecordKind = "pet"
	KindFeeding   RecordKind = "feeding"
	KindEvolution RecordKind = "evolution"
	KindSession   RecordKind = "session"
)

// Kinds lists every record kind in a stable order.
var Kinds = []RecordKind{KindPet, KindFeeding, KindEvolution, KindSession}

// Valid reports whether k names a known record kind.
func (k RecordKind) Valid() bool {
	switch k {
	case KindPet, KindFeeding, KindEvolution, KindSession:
		return true
	}
	return false
}

// Action identifies the outbound mutation carried by a queue item.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a names a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Pet is the primary domain record. Owned by a user, mutated through
// store writes only.
type Pet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Stage     string    `json:"stage"`
	Happiness int       `json:"happiness"`
	Hunger    int       `json:"hunger"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FeedingRecord is one feeding event in a pet's history.
type FeedingRecord struct {
	ID       string    `json:"id"`
	PetID    string    `json:"petId"`
	FoodType string    `json:"foodType"`
	Amount   int       `json:"amount"`
	FedAt    time.Time `json:"fedAt"`
}

// EvolutionRecord is one stage transition in a pet's history.
type EvolutionRecord struct {
	ID        string    `json:"id"`
	PetID     string    `json:"petId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	EvolvedAt time.Time `json:"evolvedAt"`
}

// GameSession is one completed mini-game session for a user.
type GameSession struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	GameType   string    `json:"gameType"`
	Score      int       `json:"score"`
	DurationMS int64     `json:"durationMs"`
	PlayedAt   time.Time `json:"playedAt"`
}

// SyncQueueItem is a pending outbound mutation awaiting remote
// acknowledgment. RetryCount only ever increases; items at or above the
// configured retry ceiling are excluded from further drains until
// manually cleared.
type SyncQueueItem struct {
	ID         string     `json:"id"`
	RecordKind RecordKind `json:"recordKind"`
	EntityID   string     `json:"entityId"`
	Action     Action     `json:"action"`
	Payload    []byte     `json:"payload,omitempty"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	RetryCount int        `json:"retryCount"`
	LastError  string     `json:"lastError,omitempty"`
}

// SyncStatus is the derived, non-persisted view of connectivity and
// queue state pushed to status listeners.
type SyncStatus struct {
	IsOnline     bool       `json:"isOnline"`
	IsSyncing    bool       `json:"isSyncing"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
	PendingCount int        `json:"pendingCount"`
	FailedCount  int        `json:"failedCount"`
	Errors       []string   `json:"errors,omitempty"`
}

// SyncResult reports the outcome of a single drain cycle.
type SyncResult struct {
	Success     bool     `json:"success"`
	SyncedCount int      `json:"syncedCount"`
	FailedCount int      `json:"failedCount"`
	Errors      []string `json:"errors,omitempty"`
}

// QueueStats summarizes the sync queue for operator diagnostics.
type QueueStats struct {
	PendingByKind map[RecordKind]int `json:"pendingByKind"`
	OldestPending *time.Time         `json:"oldestPending,omitempty"`
	AvgRetryCount float64            `json:"avgRetryCount"`
}

// StoreStats holds per-kind record counts.
type StoreStats struct {
	Counts map[RecordKind]int64 `json:"counts"`
}
