package lease

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTryAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	held, acquired, err := TryAcquire(dir, "thumb-abc", time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire returned error: %v", err)
	}
	if !acquired {
		t.Fatal("expected fresh lease to be acquired")
	}
	if _, err := os.Stat(held.Path); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	_, again, err := TryAcquire(dir, "thumb-abc", time.Minute)
	if err != nil {
		t.Fatalf("second TryAcquire returned error: %v", err)
	}
	if again {
		t.Fatal("live lease must not be acquired twice")
	}

	if err := held.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if err := held.Release(); err != nil {
		t.Fatalf("double Release should be harmless, got %v", err)
	}

	_, reacquired, err := TryAcquire(dir, "thumb-abc", time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire after release returned error: %v", err)
	}
	if !reacquired {
		t.Fatal("released lease should be acquirable")
	}
}

func TestTryAcquireReclaimsStaleLock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "wave-xyz.lock")
	payload, _ := json.Marshal(lockPayload{
		ResourceID: "wave-xyz",
		AcquiredAt: time.Now().Add(-time.Hour),
		PID:        1,
	})
	if err := os.WriteFile(lockPath, payload, 0o644); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}

	held, acquired, err := TryAcquire(dir, "wave-xyz", time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire returned error: %v", err)
	}
	if !acquired {
		t.Fatal("stale lock should be reclaimed")
	}
	if err := held.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
}

func TestTryAcquireUnreadableLockUsesMtime(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "garbled.lock")
	if err := os.WriteFile(lockPath, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	_, acquired, err := TryAcquire(dir, "garbled", time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire returned error: %v", err)
	}
	if !acquired {
		t.Fatal("old unreadable lock should be reclaimed by mtime")
	}
}

func TestTryAcquireRequiresResourceID(t *testing.T) {
	if _, _, err := TryAcquire(t.TempDir(), "", time.Minute); err == nil {
		t.Fatal("expected error for empty resource id")
	}
}
