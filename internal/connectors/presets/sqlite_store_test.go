package presets

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "presets.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Upsert(ctx, "monthly", "PID-1,PID-2", "2024-01-01", "xml")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	item, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Name != "monthly" || item.Identifiers != "PID-1,PID-2" || item.Format != "xml" {
		t.Fatalf("unexpected preset: %+v", item)
	}
}

func TestUpsert_ReplacesByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "monthly", "PID-1", "2024-01-01", "xml"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := store.Upsert(ctx, "monthly", "PID-2", "2024-02-01", "json"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	items, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one preset, got %d", len(items))
	}
	if items[0].Identifiers != "PID-2" || items[0].Format != "json" {
		t.Fatalf("unexpected preset: %+v", items[0])
	}
}

func TestUpsert_ExistingNameKeepsItsOwnID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alphaID, err := store.Upsert(ctx, "alpha", "PID-1", "2024-01-01", "xml")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	betaID, err := store.Upsert(ctx, "beta", "PID-2", "2024-02-01", "xml")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if betaID == alphaID {
		t.Fatalf("expected distinct ids, got %d for both", alphaID)
	}

	againID, err := store.Upsert(ctx, "alpha", "PID-3", "2024-03-01", "json")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if againID != alphaID {
		t.Fatalf("upsert of existing name returned id=%d, want %d", againID, alphaID)
	}

	item, err := store.Get(ctx, againID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Name != "alpha" || item.Identifiers != "PID-3" {
		t.Fatalf("unexpected preset: %+v", item)
	}
}

func TestUpsert_RejectsUnknownFormat(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Upsert(context.Background(), "bad", "", "", "csv"); err == nil {
		t.Fatalf("expected format validation error")
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Upsert(ctx, "monthly", "", "", "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	deleted, err := store.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected one row deleted, got %d", deleted)
	}
}
