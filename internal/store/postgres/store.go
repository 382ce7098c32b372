package postgres

import (
	"context"
	"errors"
	"fmt"

	"kentj-backend/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Compile-time check to ensure PostgresStore implements store.KVStore
var _ store.KVStore = (*PostgresStore)(nil)

type PostgresStore struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewPostgresStore(db *pgxpool.Pool, log *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log.Named("postgres")}
}

// Connect creates a pool for databaseURL, pings it and ensures the kv_entries table exists.
func Connect(ctx context.Context, databaseURL string, log *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	s := NewPostgresStore(pool, log)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the key-value table when it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := s.db.Exec(ctx, query); err != nil {
		s.log.Error("failed to create kv_entries table", zap.Error(err))
		return fmt.Errorf("database error creating schema: %w", err)
	}
	return nil
}

// Get retrieves the value stored under key.
// Returns store.ErrNotFound if the key does not exist.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_entries WHERE key = $1`

	var value []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		s.log.Error("failed to query key", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("database error fetching %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		s.log.Error("failed to upsert key", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("database error storing %s: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		s.log.Error("failed to delete key", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("database error deleting %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
