package types

import (
	"strings"
	"testing"
	"time"
)

func TestSnapshot_EncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	snap := &Snapshot{
		Pets: []Pet{{
			ID: "pet-1", OwnerID: "user-1", Name: "Chompy", Species: "axolotl",
			Stage: "baby", Happiness: 80, Hunger: 20, CreatedAt: now, UpdatedAt: now,
		}},
		FeedingRecords: []FeedingRecord{{
			ID: "feed-1", PetID: "pet-1", FoodType: "pellets", Amount: 2, FedAt: now,
		}},
		ExportedAt: now,
		Version:    SnapshotVersion,
	}

	data, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}

	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.RecordCount() != 2 {
		t.Errorf("Expected 2 records, got %d", got.RecordCount())
	}
	if got.Pets[0].Name != "Chompy" {
		t.Errorf("Expected pet name preserved, got %q", got.Pets[0].Name)
	}
	if !got.ExportedAt.Equal(now) {
		t.Errorf("Expected exportedAt %v, got %v", now, got.ExportedAt)
	}
}

func TestSnapshot_DecodeSkipsUnknownKind(t *testing.T) {
	data := []byte(`{
		"version": 1,
		"pets": [{"id": "pet-1", "ownerId": "user-1", "name": "Chompy"}],
		"accessories": [{"id": "hat-1"}]
	}`)

	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Pets) != 1 {
		t.Errorf("Expected known kind imported, got %d pets", len(snap.Pets))
	}
}

func TestSnapshot_DecodeRejectsMalformedKnownKind(t *testing.T) {
	data := []byte(`{"version": 1, "pets": "not-an-array"}`)

	_, err := DecodeSnapshot(data)
	if err == nil {
		t.Fatal("Expected error for malformed known kind")
	}
	if !strings.Contains(err.Error(), "pets") {
		t.Errorf("Expected error to name the kind, got %v", err)
	}
}

func TestSnapshot_DecodeRejectsMissingVersion(t *testing.T) {
	if _, err := DecodeSnapshot([]byte(`{"pets": []}`)); err == nil {
		t.Error("Expected error for missing version")
	}
}

func TestSnapshot_DecodeRejectsUnsupportedVersion(t *testing.T) {
	if _, err := DecodeSnapshot([]byte(`{"version": 2, "pets": []}`)); err == nil {
		t.Error("Expected error for unsupported version")
	}
}

func TestSnapshot_DecodeRejectsInvalidJSON(t *testing.T) {
	if _, err := DecodeSnapshot([]byte(`{`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestRecordKind_Valid(t *testing.T) {
	for _, kind := range Kinds {
		if !kind.Valid() {
			t.Errorf("Expected %q to be valid", kind)
		}
	}
	if RecordKind("accessory").Valid() {
		t.Error("Expected unknown kind to be invalid")
	}
}

func TestAction_Valid(t *testing.T) {
	for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		if !action.Valid() {
			t.Errorf("Expected %q to be valid", action)
		}
	}
	if Action("upsert").Valid() {
		t.Error("Expected unknown action to be invalid")
	}
}
