// Package store persists forecast runs and adjustment audit rows to
// Postgres. It is an I/O adapter: the calculation core never touches it.
package store

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// InitDB initializes the connection pool. The connection string comes
// from FINMODEL_DATABASE_URL, falling back to DATABASE_URL so the
// module can share a database with its host application. An optional
// FINMODEL_DB_MAX_CONNS caps the pool. Safe to call more than once.
func InitDB(ctx context.Context) error {
	var err error
	once.Do(func() {
		dbURL := os.Getenv("FINMODEL_DATABASE_URL")
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
		if dbURL == "" {
			err = fmt.Errorf("neither FINMODEL_DATABASE_URL nor DATABASE_URL is set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}
		if raw := os.Getenv("FINMODEL_DB_MAX_CONNS"); raw != "" {
			maxConns, convErr := strconv.ParseInt(raw, 10, 32)
			if convErr != nil || maxConns < 1 {
				err = fmt.Errorf("FINMODEL_DB_MAX_CONNS must be a positive integer, got '%s'", raw)
				return
			}
			config.MaxConns = int32(maxConns)
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
	})
	return err
}

// GetPool returns the database connection pool.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool.
func Close() {
	if pool != nil {
		pool.Close()
	}
}
