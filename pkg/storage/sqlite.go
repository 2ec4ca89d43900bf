package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS blobs (
	path    TEXT PRIMARY KEY,
	data    BLOB NOT NULL,
	version INTEGER NOT NULL
)`

// SQLiteStorage implements Storage on a single SQLite table. Versions are a
// per-path counter bumped on every write.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database at path with WAL journaling and a
// 5 second busy timeout, and creates the blobs table if needed.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare sqlite %s: %w", path, err)
		}
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Read(ctx context.Context, path string) ([]byte, error) {
	data, _, err := s.ReadVersion(ctx, path)
	return data, err
}

func (s *SQLiteStorage) ReadVersion(ctx context.Context, path string) ([]byte, string, error) {
	var (
		data    []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, version FROM blobs WHERE path = ?`, path).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, strconv.FormatInt(version, 10), nil
}

func (s *SQLiteStorage) Write(ctx context.Context, path string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (path, data, version) VALUES (?, ?, 1)
		ON CONFLICT (path) DO UPDATE SET data = excluded.data, version = blobs.version + 1`,
		path, data)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStorage) WriteIfMatch(ctx context.Context, path string, data []byte, version string) (string, error) {
	if version == "" {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO blobs (path, data, version) VALUES (?, ?, 1)
			ON CONFLICT (path) DO NOTHING`, path, data)
		if err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		return "1", affectedOne(res, path)
	}
	current, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%s: malformed version %q: %w", path, version, ErrVersionMismatch)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE blobs SET data = ?, version = version + 1 WHERE path = ? AND version = ?`,
		data, path, current)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return strconv.FormatInt(current+1, 10), affectedOne(res, path)
}

func affectedOne(res sql.Result, path string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", path, ErrVersionMismatch)
	}
	return nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) List(ctx context.Context, prefix string) ([]string, error) {
	dir := trimDir(prefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM blobs WHERE substr(path, 1, ?) = ? ORDER BY path`, len(dir), dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return listDirect(prefix, keys), nil
}

func (s *SQLiteStorage) Exists(ctx context.Context, path string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM blobs WHERE path = ?`, path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return true, nil
}
