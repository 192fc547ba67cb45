// internal/tenant/entry.go
//
// Session capability and cache entry.
//
// Context
// -------
// A live Session is a schema-scoped *sqlx.DB pool.  Handlers borrow it for
// the length of one request and issue queries through the narrow Session
// interface below; only the cache ever calls Close.  The cache stores each
// Session inside an `entry` alongside two timestamps:
//
//   - createdAt   – set once, breaks LRU ties.
//   - lastAccess  – refreshed on every hit, drives idle and LRU eviction.
//
// Both are guarded by the cache mutex, so no atomics are needed.
//
// Notes
// -----
//   - Handlers must never Close a borrowed Session.
//   - Oxford commas, two spaces after periods.
package tenant

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

//
// Session capability
//

// Session is a live, schema-scoped handle for one tenant.
type Session interface {
	Key() Key
	DriverName() string
	Rebind(query string) string
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	PingContext(ctx context.Context) error
	Close() error
}

// dbSession adapts *sqlx.DB to Session.
type dbSession struct {
	*sqlx.DB
	key Key
}

// NewSession wraps an already scoped pool.
func NewSession(key Key, db *sqlx.DB) Session { return &dbSession{DB: db, key: key} }

func (s *dbSession) Key() Key { return s.key }

//
// Cache entry
//

type entry struct {
	session    Session
	createdAt  time.Time
	lastAccess time.Time
}

// touch moves lastAccess forward, never backward.
func (e *entry) touch(now time.Time) {
	if now.After(e.lastAccess) {
		e.lastAccess = now
	}
}

// olderThan orders entries for LRU eviction: least recently used first,
// earliest created on ties.
func (e *entry) olderThan(o *entry) bool {
	if !e.lastAccess.Equal(o.lastAccess) {
		return e.lastAccess.Before(o.lastAccess)
	}
	return e.createdAt.Before(o.createdAt)
}
