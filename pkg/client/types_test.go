package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/critterhaus/burrow/internal/types"
)

// The agent serializes its own record structs; the client must decode
// them field-for-field. These tests pin the two wire formats together
// so a tag change on either side fails fast.

func TestWireCompat_Pet(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	agentPet := types.Pet{
		ID: "pet-1", OwnerID: "user-1", Name: "Chompy", Species: "axolotl",
		Stage: "baby", Happiness: 80, Hunger: 20, CreatedAt: now, UpdatedAt: now,
	}

	data, err := json.Marshal(agentPet)
	if err != nil {
		t.Fatal(err)
	}
	var pet Pet
	if err := json.Unmarshal(data, &pet); err != nil {
		t.Fatal(err)
	}

	if pet.ID != agentPet.ID || pet.OwnerID != agentPet.OwnerID ||
		pet.Name != agentPet.Name || pet.Species != agentPet.Species ||
		pet.Stage != agentPet.Stage || pet.Happiness != agentPet.Happiness ||
		pet.Hunger != agentPet.Hunger {
		t.Errorf("Pet fields did not survive the wire: %+v vs %+v", pet, agentPet)
	}
	if !pet.CreatedAt.Equal(now) || !pet.UpdatedAt.Equal(now) {
		t.Errorf("Pet timestamps did not survive the wire: %+v", pet)
	}
}

func TestWireCompat_HistoryRecords(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	feedData, err := json.Marshal(types.FeedingRecord{
		ID: "feed-1", PetID: "pet-1", FoodType: "pellets", Amount: 3, FedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	var feed FeedingRecord
	if err := json.Unmarshal(feedData, &feed); err != nil {
		t.Fatal(err)
	}
	if feed.PetID != "pet-1" || feed.FoodType != "pellets" || feed.Amount != 3 || !feed.FedAt.Equal(now) {
		t.Errorf("FeedingRecord fields did not survive the wire: %+v", feed)
	}

	evoData, err := json.Marshal(types.EvolutionRecord{
		ID: "evo-1", PetID: "pet-1", FromStage: "baby", ToStage: "teen", EvolvedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	var evo EvolutionRecord
	if err := json.Unmarshal(evoData, &evo); err != nil {
		t.Fatal(err)
	}
	if evo.FromStage != "baby" || evo.ToStage != "teen" || !evo.EvolvedAt.Equal(now) {
		t.Errorf("EvolutionRecord fields did not survive the wire: %+v", evo)
	}

	sessData, err := json.Marshal(types.GameSession{
		ID: "sess-1", UserID: "user-1", GameType: "fetch", Score: 42,
		DurationMS: 30000, PlayedAt: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	var sess GameSession
	if err := json.Unmarshal(sessData, &sess); err != nil {
		t.Fatal(err)
	}
	if sess.UserID != "user-1" || sess.Score != 42 || sess.DurationMS != 30000 || !sess.PlayedAt.Equal(now) {
		t.Errorf("GameSession fields did not survive the wire: %+v", sess)
	}
}

func TestWireCompat_SyncStatusAndResult(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	statusData, err := json.Marshal(types.SyncStatus{
		IsOnline: true, IsSyncing: true, LastSyncTime: &now,
		PendingCount: 2, FailedCount: 1, Errors: []string{"remote rejected item"},
	})
	if err != nil {
		t.Fatal(err)
	}
	var status SyncStatus
	if err := json.Unmarshal(statusData, &status); err != nil {
		t.Fatal(err)
	}
	if !status.IsOnline || !status.IsSyncing || status.PendingCount != 2 ||
		status.FailedCount != 1 || len(status.Errors) != 1 {
		t.Errorf("SyncStatus fields did not survive the wire: %+v", status)
	}
	if status.LastSyncTime == nil || !status.LastSyncTime.Equal(now) {
		t.Errorf("SyncStatus last sync time did not survive the wire: %+v", status.LastSyncTime)
	}

	resultData, err := json.Marshal(types.SyncResult{
		Success: false, SyncedCount: 3, FailedCount: 1, Errors: []string{"x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	var result SyncResult
	if err := json.Unmarshal(resultData, &result); err != nil {
		t.Fatal(err)
	}
	if result.Success || result.SyncedCount != 3 || result.FailedCount != 1 || len(result.Errors) != 1 {
		t.Errorf("SyncResult fields did not survive the wire: %+v", result)
	}
}
