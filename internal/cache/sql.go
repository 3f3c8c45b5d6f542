package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var sqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS cache_entries (
  namespace  TEXT    NOT NULL,
  key        TEXT    NOT NULL,
  data       BLOB    NOT NULL,
  written_at INTEGER NOT NULL,
  PRIMARY KEY (namespace, key)
);`,
	`CREATE INDEX IF NOT EXISTS cache_entries_written_at ON cache_entries (written_at);`,
}

// SQLStore keeps entries in a sqlite or libsql table. Upserts make repeated
// writes of one key idempotent.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates the cache table if needed.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("sql cache requires a database")
	}
	for _, stmt := range sqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create cache schema: %w", err)
		}
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Exists(ctx context.Context, ns Namespace, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM cache_entries WHERE namespace = ? AND key = ?;`, string(ns), key,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup cache entry: %w", err)
	}
	return true, nil
}

func (s *SQLStore) Read(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM cache_entries WHERE namespace = ? AND key = ?;`, string(ns), key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return data, nil
}

func (s *SQLStore) Write(ctx context.Context, ns Namespace, key string, data []byte) error {
	if err := ns.validate(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	query := `
INSERT INTO cache_entries (namespace, key, data, written_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(namespace, key) DO UPDATE SET
  data = excluded.data,
  written_at = excluded.written_at;
`
	if _, err := s.db.ExecContext(ctx, query, string(ns), key, data, time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (s *SQLStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE written_at < ?;`, olderThan.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
