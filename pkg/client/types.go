package client

import "time"

// The types below mirror the agent's JSON wire format. They are owned
// by this package so programs outside this module can build requests
// and read responses without reaching into the agent's internals.

// Pet is a creature owned by a user.
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

// SyncStatus is the agent's view of connectivity and queue state.
type SyncStatus struct {
	IsOnline     bool       `json:"isOnline"`
	IsSyncing    bool       `json:"isSyncing"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
	PendingCount int        `json:"pendingCount"`
	FailedCount  int        `json:"failedCount"`
	Errors       []string   `json:"errors,omitempty"`
}

// SyncResult reports the outcome of one requested drain.
type SyncResult struct {
	Success     bool     `json:"success"`
	SyncedCount int      `json:"syncedCount"`
	FailedCount int      `json:"failedCount"`
	Errors      []string `json:"errors,omitempty"`
}
