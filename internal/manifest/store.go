package manifest

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mediasync/internal/paths"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store is the per-project dedup authority: a one-hash-to-one-path map,
// first-writer-wins, backed by SQLite.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the manifest database under a project root.
func Open(projectRoot string) (*Store, error) {
	dbPath := filepath.Join(projectRoot, paths.ManifestDB)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure manifest directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
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

// Path returns the on-disk location of the manifest database.
func (s *Store) Path() string {
	return s.path
}

// Lookup answers whether this exact content already exists, and where.
func (s *Store) Lookup(ctx context.Context, hash string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var relPath string
	err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT relative_path FROM files WHERE sha256 = ?", hash).Scan(&relPath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup hash: %w", err)
	}
	return relPath, true, nil
}

// Record inserts hash→relPath unless the hash is already recorded. A
// duplicate is an expected outcome, not an error: the caller receives the
// existing canonical path and must not store a second copy.
func (s *Store) Record(ctx context.Context, hash, relPath string) (existing string, duplicate bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx = ensureContext(ctx)

	var current string
	err = s.db.QueryRowContext(ctx,
		"SELECT relative_path FROM files WHERE sha256 = ?", hash).Scan(&current)
	if err == nil {
		return current, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("check hash: %w", err)
	}

	err = s.execWithRetry(ctx,
		"INSERT INTO files (sha256, relative_path, recorded_at) VALUES (?, ?, ?)",
		hash, relPath, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", false, fmt.Errorf("record hash: %w", err)
	}
	return "", false, nil
}

// Remove deletes the record only while it still points at relPath, guarding
// against removing a record that has since been superseded.
func (s *Store) Remove(ctx context.Context, hash, relPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.execWithRetry(ensureContext(ctx),
		"DELETE FROM files WHERE sha256 = ? AND relative_path = ?", hash, relPath)
	if err != nil {
		return fmt.Errorf("remove hash record: %w", err)
	}
	return nil
}

// Paths returns the full hash→path mapping for reconciliation diffing.
func (s *Store) Paths(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT sha256, relative_path FROM files")
	if err != nil {
		return nil, fmt.Errorf("list manifest records: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]string)
	for rows.Next() {
		var hash, relPath string
		if err := rows.Scan(&hash, &relPath); err != nil {
			return nil, fmt.Errorf("scan manifest record: %w", err)
		}
		mapping[hash] = relPath
	}
	return mapping, rows.Err()
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

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
