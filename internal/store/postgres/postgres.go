// internal/store/postgres/postgres.go
// Package postgres is the durable store backend. Check-then-act sequences run
// inside a transaction holding a per-applicant advisory lock, so competing
// submissions and approvals for the same applicant are fully serialized.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"admission-engine/internal/common/logger"
	"admission-engine/internal/store"

	"github.com/redis/go-redis/v9"
)

type backend struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

// Options carries the optional collaborators of the backend.
type Options struct {
	// Redis enables the read-through candidate profile cache when non-nil.
	Redis    *redis.Client
	CacheTTL time.Duration
}

// New wires the postgres-backed capability set.
func New(db *sql.DB, log logger.Logger, opts Options) store.Stores {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	b := &backend{
		db:       db,
		redis:    opts.Redis,
		cacheTTL: ttl,
		logger:   log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
	return store.Stores{
		Profiles:      &profileStore{b},
		Postings:      &postingStore{b},
		Applications:  &applicationStore{b},
		Candidates:    &candidateStore{b},
		Notifications: &notificationStore{b},
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx, so the application query
// helpers run identically inside and outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
