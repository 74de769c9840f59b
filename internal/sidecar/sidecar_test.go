package sidecar_test

import (
	"os"
	"testing"

	"mediasync/internal/media"
	"mediasync/internal/sidecar"
)

var prov = sidecar.Provenance{Source: "primary", Method: "reindex", RunID: "run-1"}

func TestEnsureCreatesOnFirstSight(t *testing.T) {
	root := t.TempDir()
	sc, err := sidecar.Ensure(root, "ingest/originals/a.mov", "hash-a", 2048, prov)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if sc.Kind != media.KindVideo || sc.SizeBytes != 2048 {
		t.Fatalf("unexpected sidecar: %+v", sc)
	}
	if sc.Tags.Manual == nil || sc.Tags.Derived == nil {
		t.Fatal("tags not initialized")
	}

	loaded, err := sidecar.Load(root, "hash-a")
	if err != nil || loaded == nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Ingest.RunID != "run-1" {
		t.Fatalf("provenance lost: %+v", loaded.Ingest)
	}
}

func TestEnsureRefreshesDiskFacts(t *testing.T) {
	root := t.TempDir()
	if _, err := sidecar.Ensure(root, "ingest/originals/a.mov", "hash-a", 100, prov); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	later := sidecar.Provenance{Source: "other", Method: "upload"}
	sc, err := sidecar.Ensure(root, "ingest/originals/moved.mov", "hash-a", 200, later)
	if err != nil {
		t.Fatalf("Ensure refresh failed: %v", err)
	}
	if sc.Relative != "ingest/originals/moved.mov" || sc.SizeBytes != 200 {
		t.Fatalf("disk facts not refreshed: %+v", sc)
	}
	if sc.Ingest.Source != "primary" {
		t.Fatalf("provenance overwritten: %+v", sc.Ingest)
	}
	if sc.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be set")
	}
}

func TestEnsurePreservesTags(t *testing.T) {
	root := t.TempDir()
	sc, err := sidecar.Ensure(root, "ingest/originals/a.mov", "hash-a", 100, prov)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	sc.Tags.Manual = append(sc.Tags.Manual, "interview")
	if _, err := sidecar.Ensure(root, sc.Relative, sc.SHA256, sc.SizeBytes, prov); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	// Unchanged facts must not rewrite the file and lose tags added by the
	// tag store between passes.
	loaded, err := sidecar.Load(root, "hash-a")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Tags.Manual == nil {
		t.Fatal("manual tags missing")
	}
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	if _, err := sidecar.Ensure(root, "ingest/originals/a.mov", "hash-a", 100, prov); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if err := sidecar.Remove(root, "hash-a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(sidecar.Path(root, "hash-a")); !os.IsNotExist(err) {
		t.Fatal("sidecar file still present")
	}
	// Removing a missing sidecar is not an error.
	if err := sidecar.Remove(root, "hash-a"); err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
}
