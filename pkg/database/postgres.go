package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDB wraps the database connection pool
type PostgresDB struct {
	Pool *pgxpool.Pool
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *PostgresDB) Close() {
	db.Pool.Close()
}

// EnsureVectorExtension ensures the pgvector extension is installed
func (db *PostgresDB) EnsureVectorExtension(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	return err
}

// CreateCollectionTable creates one vector collection table if it doesn't
// exist. Each collection (knowledge base, scan history) is its own table with
// a deterministic text id so re-indexing upserts instead of duplicating.
func (db *PostgresDB) CreateCollectionTable(ctx context.Context, tableName string, dimension int) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, tableName, dimension)

	_, err := db.Pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	// HNSW supports up to 2000 dimensions; beyond that we fall back to exact
	// search (slower but correct).
	if dimension <= 2000 {
		indexQuery := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s USING hnsw (embedding vector_cosine_ops)
		`, tableName, tableName)

		_, err = db.Pool.Exec(ctx, indexQuery)
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", tableName, err)
		}
	}

	return nil
}
