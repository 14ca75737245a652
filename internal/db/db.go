// Package db provides the shared PostgreSQL pool, migration runner, and
// pg type helpers.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardfolio/cardfolio/internal/config"
)

// Open creates the process-wide connection pool. The pool is the only
// persistence handle shared between requests; correctness under
// concurrency is pushed down to single-statement semantics in the
// stores, not request-level locking.
func Open(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, DSN(cfg))
}
