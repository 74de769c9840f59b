package manifest_test

import (
	"context"
	"testing"

	"mediasync/internal/manifest"
)

func openStore(t *testing.T) *manifest.Store {
	t.Helper()
	store, err := manifest.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordFirstWriterWins(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	existing, duplicate, err := store.Record(ctx, "hash-1", "ingest/originals/a.mov")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if duplicate || existing != "" {
		t.Fatalf("first record reported duplicate: %q", existing)
	}

	existing, duplicate, err = store.Record(ctx, "hash-1", "ingest/originals/copy.mov")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if !duplicate || existing != "ingest/originals/a.mov" {
		t.Fatalf("expected duplicate pointing at original, got %q dup=%v", existing, duplicate)
	}
}

func TestLookup(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, ok, err := store.Lookup(ctx, "missing"); err != nil || ok {
		t.Fatalf("unexpected lookup result: ok=%v err=%v", ok, err)
	}
	if _, _, err := store.Record(ctx, "hash-2", "ingest/originals/b.mov"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	path, ok, err := store.Lookup(ctx, "hash-2")
	if err != nil || !ok || path != "ingest/originals/b.mov" {
		t.Fatalf("unexpected lookup: %q ok=%v err=%v", path, ok, err)
	}
}

func TestRemoveGuardsOnPath(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, _, err := store.Record(ctx, "hash-3", "ingest/originals/c.mov"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Pointing at a different path: record must survive.
	if err := store.Remove(ctx, "hash-3", "ingest/originals/other.mov"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := store.Lookup(ctx, "hash-3"); !ok {
		t.Fatal("record removed despite path mismatch")
	}

	if err := store.Remove(ctx, "hash-3", "ingest/originals/c.mov"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := store.Lookup(ctx, "hash-3"); ok {
		t.Fatal("record still present after matching remove")
	}
}

func TestPathsReturnsFullMapping(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	inputs := map[string]string{
		"hash-a": "ingest/originals/a.mov",
		"hash-b": "ingest/originals/b.mov",
	}
	for hash, rel := range inputs {
		if _, _, err := store.Record(ctx, hash, rel); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	mapping, err := store.Paths(ctx)
	if err != nil {
		t.Fatalf("Paths failed: %v", err)
	}
	if len(mapping) != len(inputs) {
		t.Fatalf("unexpected mapping size: %d", len(mapping))
	}
	for hash, rel := range inputs {
		if mapping[hash] != rel {
			t.Fatalf("mapping[%s] = %q, want %q", hash, mapping[hash], rel)
		}
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	store, err := manifest.Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, _, err := store.Record(ctx, "hash-p", "ingest/originals/p.mov"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := manifest.Open(root)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	path, ok, err := reopened.Lookup(ctx, "hash-p")
	if err != nil || !ok || path != "ingest/originals/p.mov" {
		t.Fatalf("record lost across reopen: %q ok=%v err=%v", path, ok, err)
	}
}
