// Package database owns the pgx connection pool, the embedded schema
// migrations, and the retry classification used by the ledger's bounded
// retries.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the pgx pool shared by the repositories and the unit-of-work
// factory. Repositories never hold it directly; they receive either the
// pool or a transaction through the queryable seam.
type DB struct {
	*pgxpool.Pool
}

// NewConnection opens the pool and verifies the ledger store is reachable
// before anything is wired on top of it.
func NewConnection(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.Pool.Close()
}
