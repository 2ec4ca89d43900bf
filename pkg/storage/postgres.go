package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const blobsTable = "agentboard_blobs"

// PostgresStorage implements Storage on a Postgres table through pgxpool.
// Versions behave like SQLiteStorage: a per-path counter.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}
	s := &PostgresStorage{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the blobs table if it doesn't exist.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+blobsTable+` (
    path    TEXT PRIMARY KEY,
    data    BYTEA NOT NULL,
    version BIGINT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", blobsTable, err)
	}
	return nil
}

func (s *PostgresStorage) Close() {
	s.pool.Close()
}

func (s *PostgresStorage) Read(ctx context.Context, path string) ([]byte, error) {
	data, _, err := s.ReadVersion(ctx, path)
	return data, err
}

func (s *PostgresStorage) ReadVersion(ctx context.Context, path string) ([]byte, string, error) {
	var (
		data    []byte
		version int64
	)
	err := s.pool.QueryRow(ctx, `SELECT data, version FROM `+blobsTable+` WHERE path = $1`, path).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, strconv.FormatInt(version, 10), nil
}

func (s *PostgresStorage) Write(ctx context.Context, path string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+blobsTable+` (path, data, version) VALUES ($1, $2, 1)
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, version = `+blobsTable+`.version + 1`,
		path, data)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *PostgresStorage) WriteIfMatch(ctx context.Context, path string, data []byte, version string) (string, error) {
	if version == "" {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO `+blobsTable+` (path, data, version) VALUES ($1, $2, 1)
			ON CONFLICT (path) DO NOTHING`, path, data)
		if err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if tag.RowsAffected() == 0 {
			return "", fmt.Errorf("%s: %w", path, ErrVersionMismatch)
		}
		return "1", nil
	}
	current, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%s: malformed version %q: %w", path, version, ErrVersionMismatch)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+blobsTable+` SET data = $1, version = version + 1 WHERE path = $2 AND version = $3`,
		data, path, current)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrVersionMismatch)
	}
	return strconv.FormatInt(current+1, 10), nil
}

func (s *PostgresStorage) Delete(ctx context.Context, path string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+blobsTable+` WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) List(ctx context.Context, prefix string) ([]string, error) {
	dir := trimDir(prefix)
	rows, err := s.pool.Query(ctx,
		`SELECT path FROM `+blobsTable+` WHERE left(path, $1) = $2 ORDER BY path`, len(dir), dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return listDirect(prefix, keys), nil
}

func (s *PostgresStorage) Exists(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+blobsTable+` WHERE path = $1)`, path).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return exists, nil
}
