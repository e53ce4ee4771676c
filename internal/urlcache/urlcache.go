// Package urlcache persists resolved service endpoints between process
// invocations in an embedded SQLite database. It backs the storage
// session's endpoint cache: the last known storage URL survives restarts
// so a fresh process can address the service without re-authenticating
// first. Tokens are never stored here.
package urlcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Store is a SQLite-backed key-value cache. Use ":memory:" as the path
// for tests.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	getStmt *sql.Stmt
	setStmt *sql.Stmt
}

// Open opens (or creates) the cache database at path and applies schema
// migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opening endpoint cache", "path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("urlcache: opening %s: %w", path, err)
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("urlcache: preparing statements: %w", err)
	}

	return s, nil
}

func (s *Store) prepareStatements(ctx context.Context) error {
	var err error

	s.getStmt, err = s.db.PrepareContext(ctx, `SELECT value FROM endpoints WHERE key = ?`)
	if err != nil {
		return err
	}

	s.setStmt, err = s.db.PrepareContext(ctx, `
		INSERT INTO endpoints (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)

	return err
}

// Get returns the cached value for key. ok is false on a miss; a miss is
// not an error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := s.getStmt.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("urlcache: reading %q: %w", key, err)
	}

	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.setStmt.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("urlcache: writing %q: %w", key, err)
	}

	return nil
}

// Delete removes key from the cache. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM endpoints WHERE key = ?`, key); err != nil {
		return fmt.Errorf("urlcache: deleting %q: %w", key, err)
	}

	return nil
}

// Close releases the prepared statements and the database handle.
func (s *Store) Close() error {
	if s.getStmt != nil {
		s.getStmt.Close()
	}

	if s.setStmt != nil {
		s.setStmt.Close()
	}

	return s.db.Close()
}
