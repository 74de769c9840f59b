// Package lease provides short-lived file-based leases for derived artifact
// generation. A lease is a lock file created with O_EXCL; holders that die
// without releasing are reclaimed once the TTL passes.
package lease

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Lease represents an acquired lock file.
type Lease struct {
	Path       string
	ResourceID string
	AcquiredAt time.Time
}

type lockPayload struct {
	ResourceID string    `json:"resource_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	PID        int       `json:"pid"`
}

// TryAcquire attempts to take the lease for resourceID under dir. It returns
// (nil, false, nil) when another live holder has it. A lock file older than
// ttl is treated as abandoned and reclaimed.
func TryAcquire(dir, resourceID string, ttl time.Duration) (*Lease, bool, error) {
	if resourceID == "" {
		return nil, false, errors.New("lease: resource id required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("lease: create lock dir: %w", err)
	}
	lockPath := filepath.Join(dir, resourceID+".lock")

	for attempt := 0; attempt < 2; attempt++ {
		lease, acquired, err := create(lockPath, resourceID)
		if err != nil {
			return nil, false, err
		}
		if acquired {
			return lease, true, nil
		}
		stale, err := isStale(lockPath, ttl)
		if err != nil {
			return nil, false, err
		}
		if !stale {
			return nil, false, nil
		}
		// Reclaim and loop back to the O_EXCL create; racing reclaimers are
		// serialized by it.
		if err := os.Remove(lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("lease: reclaim stale lock: %w", err)
		}
	}
	return nil, false, nil
}

// Release removes the lock file. Releasing twice is harmless.
func (l *Lease) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("lease: release: %w", err)
	}
	return nil
}

func create(lockPath, resourceID string) (*Lease, bool, error) {
	file, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lease: create lock: %w", err)
	}
	now := time.Now().UTC()
	payload := lockPayload{ResourceID: resourceID, AcquiredAt: now, PID: os.Getpid()}
	encodeErr := json.NewEncoder(file).Encode(payload)
	closeErr := file.Close()
	if encodeErr != nil || closeErr != nil {
		_ = os.Remove(lockPath)
		if encodeErr != nil {
			return nil, false, fmt.Errorf("lease: write lock: %w", encodeErr)
		}
		return nil, false, fmt.Errorf("lease: write lock: %w", closeErr)
	}
	return &Lease{Path: lockPath, ResourceID: resourceID, AcquiredAt: now}, true, nil
}

func isStale(lockPath string, ttl time.Duration) (bool, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Holder released between our create attempt and now.
			return true, nil
		}
		return false, fmt.Errorf("lease: read lock: %w", err)
	}
	var payload lockPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.AcquiredAt.IsZero() {
		// Unreadable lock files fall back to mtime.
		info, statErr := os.Stat(lockPath)
		if statErr != nil {
			return errors.Is(statErr, fs.ErrNotExist), nil
		}
		return time.Since(info.ModTime()) > ttl, nil
	}
	return time.Since(payload.AcquiredAt) > ttl, nil
}
