package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediasync/internal/catalog"
	"mediasync/internal/services"
)

func seedProject(t *testing.T) (string, *catalog.Index) {
	t.Helper()
	root := t.TempDir()
	index, err := catalog.Seed(root, "demo", "")
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	return root, index
}

func entry(rel, hash string) catalog.FileEntry {
	return catalog.FileEntry{
		RelativePath: rel,
		SHA256:       hash,
		SizeBytes:    10,
		IndexedAt:    time.Now().UTC(),
	}
}

func TestSeedAndLoadRoundTrip(t *testing.T) {
	root, index := seedProject(t)
	index.Append(entry("ingest/originals/a.mov", "aaa"))
	if err := catalog.Save(root, index); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := catalog.Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Project != "demo" || len(loaded.Files) != 1 {
		t.Fatalf("unexpected index: %+v", loaded)
	}
	if loaded.Counts.Videos != 1 {
		t.Fatalf("expected videos count 1, got %d", loaded.Counts.Videos)
	}
}

func TestLoadMissingIndexIsNotFound(t *testing.T) {
	_, err := catalog.Load(t.TempDir())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSaveRejectsDuplicatePaths(t *testing.T) {
	root, index := seedProject(t)
	index.Append(entry("ingest/originals/a.mov", "aaa"))
	index.Files = append(index.Files, entry("ingest/originals/a.mov", "bbb"))
	err := catalog.Save(root, index)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRemoveByPathAdjustsCounts(t *testing.T) {
	_, index := seedProject(t)
	index.Append(entry("ingest/originals/a.mov", "aaa"))
	index.Append(entry("ingest/originals/b.mov", "bbb"))

	removed := index.RemoveByPath("ingest/originals/a.mov", "ingest/originals/missing.mov")
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if index.Counts.Videos != 1 || index.Counts.RemovedMissingRecords != 1 {
		t.Fatalf("unexpected counts: %+v", index.Counts)
	}
	if index.FindByPath("ingest/originals/a.mov") != nil {
		t.Fatal("removed entry still present")
	}
}

func TestCountsNeverGoNegative(t *testing.T) {
	_, index := seedProject(t)
	index.Files = append(index.Files, entry("ingest/originals/a.mov", "aaa"))
	index.RemoveByPath("ingest/originals/a.mov")
	if index.Counts.Videos != 0 {
		t.Fatalf("videos count went negative: %d", index.Counts.Videos)
	}
}

func TestUpdateByPath(t *testing.T) {
	_, index := seedProject(t)
	index.Append(entry("ingest/originals/a.mov", "aaa"))
	ok := index.UpdateByPath("ingest/originals/a.mov", func(e *catalog.FileEntry) {
		e.SHA256 = "new"
	})
	if !ok || index.Files[0].SHA256 != "new" {
		t.Fatalf("update not applied: %+v", index.Files[0])
	}
	if index.UpdateByPath("missing", func(*catalog.FileEntry) {}) {
		t.Fatal("expected miss for unknown path")
	}
}

func TestHashRefCounts(t *testing.T) {
	_, index := seedProject(t)
	index.Append(entry("a.mov", "shared"))
	index.Append(entry("b.mov", "shared"))
	index.Append(entry("c.mov", "solo"))
	refs := index.HashRefCounts()
	if refs["shared"] != 2 || refs["solo"] != 1 {
		t.Fatalf("unexpected refs: %v", refs)
	}
}

func TestAppendEventWritesJSONL(t *testing.T) {
	root, _ := seedProject(t)
	if err := catalog.AppendEvent(root, "reconcile", map[string]int{"indexed": 2}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	if err := catalog.AppendEvent(root, "reconcile", map[string]int{"indexed": 0}); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "_manifest", "events.jsonl"))
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"event":"reconcile"`) {
		t.Fatalf("unexpected events content: %q", data)
	}
}
