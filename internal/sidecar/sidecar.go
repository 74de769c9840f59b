package sidecar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"mediasync/internal/fileutil"
	"mediasync/internal/media"
	"mediasync/internal/paths"
)

// SchemaVersion is bumped when the sidecar payload shape changes.
const SchemaVersion = 1

// Tags carries the manual and derived label sets for a content hash.
type Tags struct {
	Manual  []string `json:"manual"`
	Derived []string `json:"derived"`
}

// Provenance records how a piece of content entered the catalog.
type Provenance struct {
	Source string `json:"source"`
	Method string `json:"method"`
	RunID  string `json:"run_id,omitempty"`
}

// Sidecar is the per-content-hash metadata record kept alongside, not inside,
// the media file. There is exactly one per hash regardless of how many index
// entries share that hash.
type Sidecar struct {
	SchemaVersion int        `json:"schema_version"`
	SHA256        string     `json:"sha256"`
	Relative      string     `json:"relative"`
	Kind          media.Kind `json:"kind"`
	SizeBytes     int64      `json:"size_bytes"`
	RecordedAt    time.Time  `json:"recorded_at"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty"`
	Ingest        Provenance `json:"ingest"`
	Tags          Tags       `json:"tags"`
}

// Path returns the sidecar location for a hash under a project root.
func Path(projectRoot, hash string) string {
	return filepath.Join(projectRoot, paths.MetadataDir, hash+".json")
}

// Load reads a sidecar if present; a missing sidecar is (nil, nil).
func Load(projectRoot, hash string) (*Sidecar, error) {
	data, err := os.ReadFile(Path(projectRoot, hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse sidecar %s: %w", hash, err)
	}
	return &sc, nil
}

// Ensure creates a sidecar on first sight of a hash, or refreshes the fields
// that track disk reality (relative path, kind, size) on subsequent sightings.
// Provenance is recorded once and never overwritten; tags are preserved.
func Ensure(projectRoot, relPath, hash string, sizeBytes int64, prov Provenance) (*Sidecar, error) {
	existing, err := Load(projectRoot, hash)
	if err != nil {
		return nil, err
	}

	kind := media.KindFor(relPath)
	if existing == nil {
		sc := &Sidecar{
			SchemaVersion: SchemaVersion,
			SHA256:        hash,
			Relative:      relPath,
			Kind:          kind,
			SizeBytes:     sizeBytes,
			RecordedAt:    time.Now().UTC(),
			Ingest:        prov,
			Tags:          Tags{Manual: []string{}, Derived: []string{}},
		}
		if err := write(projectRoot, sc); err != nil {
			return nil, err
		}
		return sc, nil
	}

	updated := false
	if existing.Relative != relPath {
		existing.Relative = relPath
		updated = true
	}
	if existing.Kind != kind {
		existing.Kind = kind
		updated = true
	}
	if existing.SizeBytes != sizeBytes {
		existing.SizeBytes = sizeBytes
		updated = true
	}
	if existing.SchemaVersion == 0 {
		existing.SchemaVersion = SchemaVersion
		updated = true
	}
	if existing.Tags.Manual == nil {
		existing.Tags.Manual = []string{}
	}
	if existing.Tags.Derived == nil {
		existing.Tags.Derived = []string{}
	}
	if existing.Ingest.Source == "" {
		existing.Ingest = prov
		updated = true
	}

	if updated {
		existing.UpdatedAt = time.Now().UTC()
		if err := write(projectRoot, existing); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

// Remove deletes a sidecar if it exists.
func Remove(projectRoot, hash string) error {
	err := os.Remove(Path(projectRoot, hash))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove sidecar: %w", err)
	}
	return nil
}

func write(projectRoot string, sc *Sidecar) error {
	return fileutil.WriteJSONAtomic(Path(projectRoot, sc.SHA256), sc)
}
