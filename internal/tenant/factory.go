package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/tenancy/internal/database"
)

// Factory opens a new session scoped to one tenant.  Implementations must
// not retry internally and must not leak a partially opened session.
type Factory interface {
	Create(ctx context.Context, id ID) (Session, error)
}

// SQLFactory opens one small pool per tenant.  Steps:
//
//  1. Derive the key (schema name).
//  2. Copy Base, override Schema and pool limits.
//  3. Open and ping the pool.
//  4. Confirm the pool resolves unqualified names to the tenant schema.
type SQLFactory struct {
	Base     database.Options
	PoolSize int

	// Open defaults to database.OpenWithOptions.  Tests swap it for sqlmock.
	Open func(ctx context.Context, opts database.Options) (*sqlx.DB, error)
}

// NewSQLFactory returns a factory for base with poolSize connections per
// tenant.
func NewSQLFactory(base database.Options, poolSize int) *SQLFactory {
	return &SQLFactory{Base: base, PoolSize: poolSize}
}

// Create implements Factory.
func (f *SQLFactory) Create(ctx context.Context, id ID) (Session, error) {
	key := KeyFor(id)

	opts := f.Base
	opts.Schema = key.Schema()
	opts.MaxOpenConns = max(f.PoolSize, 1)
	opts.MaxIdleConns = max(f.PoolSize/2, 1)
	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = 30 * time.Minute
	}

	open := f.Open
	if open == nil {
		open = database.OpenWithOptions
	}
	db, err := open(ctx, opts)
	if err != nil {
		return nil, &SessionCreationError{Key: key, Cause: err}
	}

	current, err := database.CurrentSchema(ctx, db)
	if err == nil && current != key.Schema() {
		err = fmt.Errorf("schema %q is not provisioned (connection resolved to %q)", key, current)
	}
	if err != nil {
		_ = db.Close()
		return nil, &SessionCreationError{Key: key, Cause: err}
	}
	return NewSession(key, db), nil
}
