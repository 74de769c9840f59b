package buckets

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

	"mediasync/internal/services"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store persists discovered buckets per source, backed by SQLite under the
// sources directory.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the bucket database in sourcesDir.
func OpenStore(sourcesDir string) (*Store, error) {
	dbPath := filepath.Join(sourcesDir, "buckets.sqlite")
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

// Replace swaps a source's discovered buckets for a fresh discovery result.
// Pinned rows survive: a pinned bucket that vanished from discovery is kept,
// and a rediscovered bucket inherits its previous pinned flag.
func (s *Store) Replace(ctx context.Context, sourceName string, discovered []Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	pinned := map[string]bool{}
	rows, err := tx.QueryContext(ctx, "SELECT id FROM buckets WHERE source = ? AND pinned = 1", sourceName)
	if err != nil {
		return fmt.Errorf("read pinned buckets: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan pinned bucket: %w", err)
		}
		pinned[id] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, "DELETE FROM buckets WHERE source = ? AND pinned = 0", sourceName); err != nil {
		return fmt.Errorf("clear unpinned buckets: %w", err)
	}

	for _, bucket := range discovered {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO buckets (id, source, rel_root, title, file_count, depth, kinds, mixed, pinned, discovered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				file_count = excluded.file_count,
				depth = excluded.depth,
				kinds = excluded.kinds,
				mixed = excluded.mixed,
				discovered_at = excluded.discovered_at`,
			bucket.ID, bucket.Source, bucket.RelRoot, bucket.Title, bucket.FileCount,
			bucket.Depth, strings.Join(bucket.Kinds, ","), boolToInt(bucket.Mixed),
			boolToInt(pinned[bucket.ID]), bucket.DiscoveredAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert bucket %s: %w", bucket.RelRoot, err)
		}
	}

	return tx.Commit()
}

// List returns a source's buckets, pinned first, then by file count.
func (s *Store) List(ctx context.Context, sourceName string) ([]Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, rel_root, title, file_count, depth, kinds, mixed, pinned, discovered_at
		FROM buckets WHERE source = ?
		ORDER BY pinned DESC, file_count DESC, rel_root ASC`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var result []Bucket
	for rows.Next() {
		var bucket Bucket
		var kinds, discoveredAt string
		var mixed, pinnedFlag int
		if err := rows.Scan(&bucket.ID, &bucket.Source, &bucket.RelRoot, &bucket.Title,
			&bucket.FileCount, &bucket.Depth, &kinds, &mixed, &pinnedFlag, &discoveredAt); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		if kinds != "" {
			bucket.Kinds = strings.Split(kinds, ",")
		}
		bucket.Mixed = mixed != 0
		bucket.Pinned = pinnedFlag != 0
		if parsed, err := time.Parse(time.RFC3339Nano, discoveredAt); err == nil {
			bucket.DiscoveredAt = parsed
		}
		result = append(result, bucket)
	}
	return result, rows.Err()
}

// SetPinned marks or unmarks a bucket as pinned.
func (s *Store) SetPinned(ctx context.Context, id string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "UPDATE buckets SET pinned = ? WHERE id = ?", boolToInt(pinned), id)
	if err != nil {
		return fmt.Errorf("pin bucket: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pin bucket: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "buckets", "pin", fmt.Sprintf("no bucket with id %s", id), nil)
	}
	return nil
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
