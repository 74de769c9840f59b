package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mediasync/internal/catalog"
	"mediasync/internal/config"
	"mediasync/internal/derive"
	"mediasync/internal/fileutil"
	"mediasync/internal/logging"
	"mediasync/internal/manifest"
	"mediasync/internal/media"
	"mediasync/internal/orientation"
	"mediasync/internal/paths"
	"mediasync/internal/services"
	"mediasync/internal/sidecar"
)

// Result summarizes one reconciliation run over a project.
type Result struct {
	RunID               string `json:"run_id"`
	Project             string `json:"project"`
	Indexed             int    `json:"indexed"`
	Removed             int    `json:"removed"`
	Relocated           int    `json:"relocated"`
	SkippedUnsupported  int    `json:"skipped_unsupported"`
	Normalized          int    `json:"normalized"`
	NormalizationFailed int    `json:"normalization_failed"`
}

// Changed reports whether the run mutated the catalog.
func (r Result) Changed() bool {
	return r.Indexed > 0 || r.Removed > 0 || r.Relocated > 0 || r.Normalized > 0
}

// Normalizer is the slice of the orientation service reconciliation needs.
type Normalizer interface {
	Normalize(ctx context.Context, path string, opts orientation.Options) (orientation.Result, error)
}

// Engine drives a project's catalog back into agreement with its filesystem.
// Runs are idempotent: a second run over an unchanged tree reports no deltas.
type Engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	normalizer Normalizer
}

// New builds an engine. The normalizer may be nil, in which case rotated
// videos are indexed as-is.
func New(cfg *config.Config, logger *slog.Logger, normalizer Normalizer) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "reconcile"),
		normalizer: normalizer,
	}
}

// Run reconciles one project by name. The project must already have an index.
func (e *Engine) Run(ctx context.Context, project string) (Result, error) {
	projectRoot, err := paths.ProjectPath(e.cfg.Paths.ProjectsRoot, project)
	if err != nil {
		return Result{}, err
	}

	index, err := catalog.Load(projectRoot)
	if err != nil {
		return Result{}, err
	}

	store, err := manifest.Open(projectRoot)
	if err != nil {
		return Result{}, err
	}
	defer store.Close()

	result := Result{RunID: uuid.NewString(), Project: index.Project}

	if err := e.relocateStrays(projectRoot, &result); err != nil {
		return result, err
	}
	if err := e.scanIngest(ctx, projectRoot, index, store, &result); err != nil {
		return result, err
	}
	if err := e.removeMissing(ctx, projectRoot, index, store, &result); err != nil {
		return result, err
	}

	if err := catalog.Save(projectRoot, index); err != nil {
		return result, err
	}
	if err := catalog.AppendEvent(projectRoot, "reconcile", result); err != nil {
		e.logger.Warn("failed to append reconcile event", logging.Error(err))
	}

	e.logger.Info("reconcile complete",
		logging.String("project", index.Project),
		logging.String("run_id", result.RunID),
		logging.Int("indexed", result.Indexed),
		logging.Int("removed", result.Removed),
		logging.Int("relocated", result.Relocated),
		logging.Int("normalized", result.Normalized))
	return result, nil
}

// relocateStrays moves supported media that landed outside ingest/originals
// into it, preserving the path below the project root. Unsupported strays are
// counted and left alone.
func (e *Engine) relocateStrays(projectRoot string, result *Result) error {
	ingestRoot := filepath.Join(projectRoot, paths.IngestDir)

	return filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == projectRoot {
				return nil
			}
			if path == ingestRoot || media.IgnoredDir(d.Name()) || paths.IsBookkeepingPath(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if paths.IsBookkeepingPath(rel) || media.IgnoredFile(d.Name()) {
			return nil
		}
		if !media.Supported(path) {
			result.SkippedUnsupported++
			return nil
		}

		dest := fileutil.CollisionFreePath(filepath.Join(ingestRoot, rel))
		if err := fileutil.MoveFile(path, dest); err != nil {
			return fmt.Errorf("relocate %s: %w", rel, err)
		}
		result.Relocated++
		e.logger.Info("relocated stray media",
			logging.String("from", rel),
			logging.String("to", filepath.ToSlash(filepath.Join(paths.IngestDir, rel))))
		return nil
	})
}

// scanIngest walks ingest/originals, normalizing rotated videos, hashing, and
// reconciling each file against the manifest and index.
func (e *Engine) scanIngest(ctx context.Context, projectRoot string, index *catalog.Index, store *manifest.Store, result *Result) error {
	ingestRoot := filepath.Join(projectRoot, paths.IngestDir)
	if _, err := os.Stat(ingestRoot); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return filepath.WalkDir(ingestRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if media.IgnoredDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if media.IgnoredFile(d.Name()) {
			return nil
		}
		if !media.Supported(path) {
			result.SkippedUnsupported++
			return nil
		}

		if e.shouldNormalize(path) {
			normResult, err := e.normalizer.Normalize(ctx, path, orientation.Options{})
			switch {
			case err == nil && normResult.Changed:
				result.Normalized++
			case errors.Is(err, services.ErrOrientation):
				// Keep going; the rotated bytes are still cataloged.
				result.NormalizationFailed++
				e.logger.Warn("orientation normalization failed",
					logging.String("path", path),
					logging.Error(err))
			case err != nil:
				return err
			}
		}

		return e.reconcileFile(ctx, projectRoot, path, index, store, result)
	})
}

func (e *Engine) shouldNormalize(path string) bool {
	return e.normalizer != nil && e.cfg.Orientation.Enabled && media.IsVideo(path)
}

func (e *Engine) reconcileFile(ctx context.Context, projectRoot, path string, index *catalog.Index, store *manifest.Store, result *Result) error {
	rel, err := filepath.Rel(projectRoot, path)
	if err != nil {
		return err
	}
	relPath := filepath.ToSlash(rel)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", relPath, err)
	}
	hash, err := fileutil.HashFile(path)
	if err != nil {
		return fmt.Errorf("hash %s: %w", relPath, err)
	}

	prov := sidecar.Provenance{Source: "primary", Method: "reconcile", RunID: result.RunID}
	entry := index.FindByPath(relPath)

	if entry == nil {
		existing, duplicate, err := store.Record(ctx, hash, relPath)
		if err != nil {
			return err
		}
		capture := paths.ParseCapture(relPath)
		index.Append(catalog.FileEntry{
			RelativePath: relPath,
			SHA256:       hash,
			SizeBytes:    info.Size(),
			IndexedAt:    time.Now().UTC(),
			Capture:      &capture,
		})
		// A hash already mapped to this very path is an index rebuild, not a
		// dedup hit.
		if duplicate && existing != relPath {
			index.BumpDuplicatesSkipped()
		}
		if _, err := sidecar.Ensure(projectRoot, relPath, hash, info.Size(), prov); err != nil {
			return err
		}
		result.Indexed++
		return nil
	}

	if entry.SHA256 == hash {
		if entry.SizeBytes != info.Size() {
			index.UpdateByPath(relPath, func(fe *catalog.FileEntry) { fe.SizeBytes = info.Size() })
		}
		return nil
	}

	// Content changed under a known path: move the record to the new hash and
	// garbage collect the old hash's artifacts if nothing else references it.
	oldHash := entry.SHA256
	if _, _, err := store.Record(ctx, hash, relPath); err != nil {
		return err
	}
	index.UpdateByPath(relPath, func(fe *catalog.FileEntry) {
		fe.SHA256 = hash
		fe.SizeBytes = info.Size()
		fe.IndexedAt = time.Now().UTC()
	})
	if err := store.Remove(ctx, oldHash, relPath); err != nil {
		return err
	}
	if index.HashRefCounts()[oldHash] == 0 {
		if err := e.collectHash(projectRoot, oldHash); err != nil {
			return err
		}
	}
	if _, err := sidecar.Ensure(projectRoot, relPath, hash, info.Size(), prov); err != nil {
		return err
	}
	result.Indexed++
	return nil
}

// removeMissing drops index entries whose files disappeared or are no longer
// supported media, and garbage collects per-hash artifacts that no surviving
// entry references.
func (e *Engine) removeMissing(ctx context.Context, projectRoot string, index *catalog.Index, store *manifest.Store, result *Result) error {
	var gonePaths []string
	var goneEntries []catalog.FileEntry
	for _, entry := range index.Files {
		// Legacy entries for files that would never be indexed today are
		// treated the same as deleted ones.
		if !media.Supported(entry.RelativePath) || media.IgnoredFile(filepath.Base(entry.RelativePath)) {
			gonePaths = append(gonePaths, entry.RelativePath)
			goneEntries = append(goneEntries, entry)
			continue
		}
		_, err := os.Stat(filepath.Join(projectRoot, filepath.FromSlash(entry.RelativePath)))
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			gonePaths = append(gonePaths, entry.RelativePath)
			goneEntries = append(goneEntries, entry)
		default:
			return fmt.Errorf("stat %s: %w", entry.RelativePath, err)
		}
	}
	if len(gonePaths) == 0 {
		return nil
	}

	result.Removed += index.RemoveByPath(gonePaths...)

	refs := index.HashRefCounts()
	for _, entry := range goneEntries {
		if err := store.Remove(ctx, entry.SHA256, entry.RelativePath); err != nil {
			return err
		}
		if refs[entry.SHA256] > 0 {
			continue
		}
		if err := e.collectHash(projectRoot, entry.SHA256); err != nil {
			return err
		}
		e.logger.Info("removed orphaned content artifacts",
			logging.String("sha256", entry.SHA256),
			logging.String("last_path", entry.RelativePath))
	}
	return nil
}

func (e *Engine) collectHash(projectRoot, hash string) error {
	if err := sidecar.Remove(projectRoot, hash); err != nil {
		return err
	}
	thumb := derive.ThumbnailPath(projectRoot, hash)
	if err := os.Remove(thumb); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove thumbnail: %w", err)
	}
	return nil
}
