package session

import (
	"testing"
	"time"
)

func TestCreateAssignsUniqueIDs(t *testing.T) {
	manager := NewManager(time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		record, err := manager.Create()
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if len(record.ID) != 64 {
			t.Fatalf("expected 64 hex chars, got %d (%q)", len(record.ID), record.ID)
		}
		if seen[record.ID] {
			t.Fatalf("duplicate session ID %q", record.ID)
		}
		seen[record.ID] = true
	}

	if manager.Count() != 50 {
		t.Errorf("Count = %d, want 50", manager.Count())
	}
}

func TestGetRefreshesAccess(t *testing.T) {
	manager := NewManager(time.Hour)
	record, err := manager.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	before := record.LastAccess
	time.Sleep(5 * time.Millisecond)

	got, ok := manager.Get(record.ID)
	if !ok {
		t.Fatal("session not found")
	}
	if !got.LastAccess.After(before) {
		t.Error("Get did not refresh LastAccess")
	}

	if _, ok := manager.Get("no-such-id"); ok {
		t.Error("unknown ID should not resolve")
	}
}

func TestExpiredSessionRemovedOnGet(t *testing.T) {
	manager := NewManager(20 * time.Millisecond)
	record, err := manager.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, ok := manager.Get(record.ID); ok {
		t.Error("expired session still resolvable")
	}
	if manager.Count() != 0 {
		t.Errorf("expired session still registered: Count = %d", manager.Count())
	}
}

func TestCleanupExpiredReturnsIDs(t *testing.T) {
	manager := NewManager(20 * time.Millisecond)

	old1, _ := manager.Create()
	old2, _ := manager.Create()

	time.Sleep(50 * time.Millisecond)
	fresh, _ := manager.Create()

	removed := manager.CleanupExpired()
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %d", len(removed))
	}
	got := map[string]bool{removed[0]: true, removed[1]: true}
	if !got[old1.ID] || !got[old2.ID] {
		t.Errorf("wrong sessions removed: %v", removed)
	}

	if _, ok := manager.Get(fresh.ID); !ok {
		t.Error("fresh session removed by cleanup")
	}
}

func TestDelete(t *testing.T) {
	manager := NewManager(time.Hour)
	record, _ := manager.Create()

	manager.Delete(record.ID)
	if _, ok := manager.Get(record.ID); ok {
		t.Error("deleted session still resolvable")
	}

	// Idempotent.
	manager.Delete(record.ID)
}
