package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"mediasync/internal/fileutil"
	"mediasync/internal/paths"
	"mediasync/internal/services"
)

// FileEntry is one indexed media file within a project.
type FileEntry struct {
	RelativePath string         `json:"relative_path"`
	SHA256       string         `json:"sha256"`
	SizeBytes    int64          `json:"size_bytes"`
	IndexedAt    time.Time      `json:"indexed_at"`
	Capture      *paths.Capture `json:"capture_metadata,omitempty"`
}

// Counts are maintained incrementally per mutation so the index file doubles
// as a lightweight audit trail; they are never recomputed from scratch.
type Counts struct {
	Videos                int `json:"videos"`
	DuplicatesSkipped     int `json:"duplicates_skipped"`
	RemovedMissingRecords int `json:"removed_missing_records"`
}

// Index is the ordered, path-keyed catalog of known files for one project.
type Index struct {
	Project   string      `json:"project"`
	Notes     string      `json:"notes"`
	CreatedAt time.Time   `json:"created_at"`
	Files     []FileEntry `json:"files"`
	Counts    Counts      `json:"counts"`
}

// Seed writes a fresh empty index for a project.
func Seed(projectRoot, project, notes string) (*Index, error) {
	index := &Index{
		Project:   project,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
		Files:     []FileEntry{},
	}
	if err := Save(projectRoot, index); err != nil {
		return nil, err
	}
	return index, nil
}

// Load reads a project's index from disk.
func Load(projectRoot string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(projectRoot, paths.IndexFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "catalog", "load",
				fmt.Sprintf("missing index for project at %s", projectRoot), nil)
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	if index.Files == nil {
		index.Files = []FileEntry{}
	}
	return &index, nil
}

// Save persists the index atomically after verifying the unique-path invariant.
func Save(projectRoot string, index *Index) error {
	seen := make(map[string]struct{}, len(index.Files))
	for _, entry := range index.Files {
		if _, dup := seen[entry.RelativePath]; dup {
			return services.Wrap(services.ErrConflict, "catalog", "save",
				fmt.Sprintf("duplicate relative path %q", entry.RelativePath), nil)
		}
		seen[entry.RelativePath] = struct{}{}
	}
	return fileutil.WriteJSONAtomic(filepath.Join(projectRoot, paths.IndexFile), index)
}

// Append adds a new entry and bumps the video counter.
func (i *Index) Append(entry FileEntry) {
	i.Files = append(i.Files, entry)
	i.Counts.Videos++
}

// FindByPath returns a pointer to the entry with the given relative path.
func (i *Index) FindByPath(relPath string) *FileEntry {
	for idx := range i.Files {
		if i.Files[idx].RelativePath == relPath {
			return &i.Files[idx]
		}
	}
	return nil
}

// RemoveByPath drops entries matching the given relative paths and adjusts
// counters, returning how many were removed.
func (i *Index) RemoveByPath(relPaths ...string) int {
	drop := make(map[string]struct{}, len(relPaths))
	for _, p := range relPaths {
		drop[p] = struct{}{}
	}
	kept := i.Files[:0]
	removed := 0
	for _, entry := range i.Files {
		if _, gone := drop[entry.RelativePath]; gone {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	i.Files = kept
	if removed > 0 {
		i.Counts.Videos = maxInt(0, i.Counts.Videos-removed)
		i.Counts.RemovedMissingRecords += removed
	}
	return removed
}

// UpdateByPath applies fn to the entry with the given relative path and
// reports whether it was found.
func (i *Index) UpdateByPath(relPath string, fn func(*FileEntry)) bool {
	entry := i.FindByPath(relPath)
	if entry == nil {
		return false
	}
	fn(entry)
	return true
}

// BumpDuplicatesSkipped records a dedup hit.
func (i *Index) BumpDuplicatesSkipped() {
	i.Counts.DuplicatesSkipped++
}

// HashRefCounts returns how many entries reference each content hash.
func (i *Index) HashRefCounts() map[string]int {
	refs := make(map[string]int, len(i.Files))
	for _, entry := range i.Files {
		refs[entry.SHA256]++
	}
	return refs
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
