package bridge

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mediasync/internal/config"
	"mediasync/internal/services"
	"mediasync/internal/sources"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store holds staged scans and committed library roots, backed by SQLite
// under the sources directory.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenStore initializes or connects to the bridge database in sourcesDir.
func OpenStore(sourcesDir string) (*Store, error) {
	dbPath := filepath.Join(sourcesDir, "bridge.sqlite")
	if err := os.MkdirAll(sourcesDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure sources directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateScan walks the source tree and stores the preview under a fresh id
// with the configured TTL.
func (s *Store) CreateScan(ctx context.Context, source sources.Source, cfg config.StageScan) (*Scan, error) {
	root, err := ScanTree(source, cfg)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", source.Name, err)
	}

	now := s.now().UTC()
	scan := &Scan{
		ID:        uuid.NewString(),
		Source:    source.Name,
		Root:      root,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(cfg.TTLMinutes) * time.Minute),
	}
	payload, err := json.Marshal(scan)
	if err != nil {
		return nil, fmt.Errorf("encode scan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO stage_scans (id, source, payload, created_at, expires_at) VALUES (?, ?, ?, ?, ?)",
		scan.ID, scan.Source, string(payload),
		scan.CreatedAt.Format(time.RFC3339Nano), scan.ExpiresAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("store scan: %w", err)
	}
	return scan, nil
}

// GetScan loads a staged scan. An expired scan is deleted on read and comes
// back as not found.
func (s *Store) GetScan(ctx context.Context, id string) (*Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM stage_scans WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "bridge", "get scan", fmt.Sprintf("no scan %s", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}

	var scan Scan
	if err := json.Unmarshal([]byte(payload), &scan); err != nil {
		return nil, fmt.Errorf("decode scan %s: %w", id, err)
	}
	if scan.Expired(s.now().UTC()) {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM stage_scans WHERE id = ?", id); err != nil {
			return nil, fmt.Errorf("expire scan: %w", err)
		}
		return nil, services.Wrap(services.ErrNotFound, "bridge", "get scan",
			fmt.Sprintf("scan %s expired", id), nil)
	}
	return &scan, nil
}

// Commit records the selected paths of a staged scan as library roots for its
// source and consumes the scan. Every path must exist in the scan tree.
func (s *Store) Commit(ctx context.Context, id string, selected []string) (*Scan, error) {
	scan, err := s.GetScan(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, services.Wrap(services.ErrValidation, "bridge", "commit", "no paths selected", nil)
	}
	for _, path := range selected {
		if FindNode(scan.Root, path) == nil {
			return nil, services.Wrap(services.ErrValidation, "bridge", "commit",
				fmt.Sprintf("path %q is not part of scan %s", path, id), nil)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	committedAt := s.now().UTC().Format(time.RFC3339Nano)
	for _, path := range selected {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO library_roots (source, rel_root, committed_at) VALUES (?, ?, ?)
			ON CONFLICT(source, rel_root) DO UPDATE SET committed_at = excluded.committed_at`,
			scan.Source, path, committedAt)
		if err != nil {
			return nil, fmt.Errorf("commit root %q: %w", path, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM stage_scans WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("consume scan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return scan, nil
}

// DeleteScan discards a staged scan without committing anything.
func (s *Store) DeleteScan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM stage_scans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "bridge", "delete scan", fmt.Sprintf("no scan %s", id), nil)
	}
	return nil
}

// LibraryRoots returns the committed roots for a source, oldest first.
func (s *Store) LibraryRoots(ctx context.Context, sourceName string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT rel_root FROM library_roots WHERE source = ? ORDER BY committed_at ASC, rel_root ASC", sourceName)
	if err != nil {
		return nil, fmt.Errorf("list library roots: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("scan library root: %w", err)
		}
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

// PruneExpired removes all scans past their TTL and reports how many went.
func (s *Store) PruneExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM stage_scans WHERE expires_at < ?", s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune scans: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}
