package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/critterhaus/burrow/internal/connectivity"
	"github.com/critterhaus/burrow/internal/types"
)

func TestBroadcaster_Status(t *testing.T) {
	s := newMockSyncStore(3)
	s.add("a", types.KindPet)
	s.add("b", types.KindFeeding)
	conn := connectivity.NewManual(true)
	b := NewBroadcaster(s, conn, 3)

	status, err := b.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsOnline {
		t.Error("Expected online")
	}
	if status.IsSyncing {
		t.Error("Expected not syncing")
	}
	if status.PendingCount != 2 {
		t.Errorf("Expected 2 pending, got %d", status.PendingCount)
	}
	if status.FailedCount != 0 {
		t.Errorf("Expected 0 failed, got %d", status.FailedCount)
	}
	if status.LastSyncTime != nil {
		t.Errorf("Expected nil last sync time, got %v", status.LastSyncTime)
	}
	if status.Errors != nil {
		t.Errorf("Expected no errors, got %v", status.Errors)
	}
}

func TestBroadcaster_StatusIncludesFailureErrors(t *testing.T) {
	s := newMockSyncStore(3)
	s.add("a", types.KindPet)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.RecordFailure(ctx, "a", "remote rejected item"); err != nil {
			t.Fatal(err)
		}
	}
	b := NewBroadcaster(s, connectivity.NewManual(false), 3)

	status, err := b.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.FailedCount != 1 {
		t.Errorf("Expected 1 failed, got %d", status.FailedCount)
	}
	if len(status.Errors) != 1 || status.Errors[0] != "remote rejected item" {
		t.Errorf("Expected failure message, got %v", status.Errors)
	}
}

func TestBroadcaster_SubscribeAndUnsubscribe(t *testing.T) {
	s := newMockSyncStore(3)
	b := NewBroadcaster(s, connectivity.NewManual(true), 3)

	var mu sync.Mutex
	first, second := 0, 0
	unsubFirst := b.Subscribe(func(types.SyncStatus) {
		mu.Lock()
		first++
		mu.Unlock()
	})
	unsubSecond := b.Subscribe(func(types.SyncStatus) {
		mu.Lock()
		second++
		mu.Unlock()
	})
	defer unsubSecond()

	b.Notify(context.Background())
	unsubFirst()
	b.Notify(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if first != 1 {
		t.Errorf("Expected 1 delivery to unsubscribed listener, got %d", first)
	}
	if second != 2 {
		t.Errorf("Expected 2 deliveries, got %d", second)
	}
}

func TestBroadcaster_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	s := newMockSyncStore(3)
	b := NewBroadcaster(s, connectivity.NewManual(true), 3)

	b.Subscribe(func(types.SyncStatus) {
		panic("listener bug")
	})
	var mu sync.Mutex
	delivered := 0
	b.Subscribe(func(types.SyncStatus) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	b.Notify(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if delivered != 1 {
		t.Errorf("Expected delivery despite panicking sibling, got %d", delivered)
	}
}

func TestBroadcaster_SetSyncing(t *testing.T) {
	s := newMockSyncStore(3)
	b := NewBroadcaster(s, connectivity.NewManual(true), 3)

	b.SetSyncing(true)
	status, err := b.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsSyncing {
		t.Error("Expected syncing status")
	}

	b.SetSyncing(false)
	status, err = b.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.IsSyncing {
		t.Error("Expected idle status")
	}
}
