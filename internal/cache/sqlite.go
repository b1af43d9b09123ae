package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const driverSQLite = "sqlite"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS response_cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_response_cache_created ON response_cache(created_at);`,
}

// SQLite persists entries in a local database file so they survive
// process restarts, e.g. between CLI invocations.
type SQLite struct {
	db     *sql.DB
	policy Policy
	clock  func() time.Time
}

// OpenSQLite opens (creating if needed) a cache database at path. Use
// ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string, policy Policy) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open(driverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and avoids
	// SQLITE_BUSY between writers of the same file.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite cache: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache migration failed: %w", err)
		}
	}

	return &SQLite{db: db, policy: policy.withDefaults(), clock: time.Now}, nil
}

// WithClock overrides the time source.
func (s *SQLite) WithClock(clock func() time.Time) *SQLite {
	s.clock = clock
	return s
}

// Get implements Cache.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value    []byte
		created  int64
		accessed int64
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT value, created_at, accessed_at
		FROM response_cache
		WHERE key = ?
	`, key)
	if err := row.Scan(&value, &created, &accessed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch cached response: %w", err)
	}

	now := s.clock()
	if s.policy.expired(now, time.Unix(0, created), time.Unix(0, accessed)) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM response_cache WHERE key = ?`, key); err != nil {
			return nil, false, fmt.Errorf("evict cached response: %w", err)
		}
		return nil, false, nil
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE response_cache SET accessed_at = ? WHERE key = ?`, now.UnixNano(), key); err != nil {
		return nil, false, fmt.Errorf("touch cached response: %w", err)
	}
	return value, true, nil
}

// Set implements Cache.
func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	now := s.clock().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO response_cache (key, value, created_at, accessed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			accessed_at = excluded.accessed_at
	`, key, value, now, now)
	if err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}
	return nil
}

// DeletePrefix implements Cache.
func (s *SQLite) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM response_cache WHERE substr(key, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return fmt.Errorf("delete cached responses: %w", err)
	}
	return nil
}

// Clear implements Cache.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM response_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Prune removes every expired entry.
func (s *SQLite) Prune(ctx context.Context) (int64, error) {
	now := s.clock()
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM response_cache
		WHERE created_at <= ? OR accessed_at <= ?
	`, now.Add(-s.policy.TTL).UnixNano(), now.Add(-s.policy.TTI).UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Cache.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
