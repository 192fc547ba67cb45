// internal/registry/repository.go
//
// Tenant registry in the shared schema.
//
// Context
// -------
// Create is the only write path.  It rejects a duplicate name, inserts the
// row, provisions the tenant schema, and runs the tenant migrations there.
// A failure after the insert removes the row again, so a tenant is only
// listed once its schema is usable.  The empty schema may remain; CREATE
// SCHEMA IF NOT EXISTS makes a retry safe.
//
// Notes
// -----
//   - Queries are written with `?` and rebound per driver by sqlx.
//   - List order is registration order, which the fleet migrator relies on.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/database"
)

var (
	// ErrConflict is returned when a tenant with the same name exists.
	ErrConflict = errors.New("tenant already exists")

	// ErrNotFound is returned for an unknown tenant id.
	ErrNotFound = errors.New("tenant not found")
)

// SchemaMigrator brings a freshly created tenant schema up to date.
type SchemaMigrator interface {
	MigrateSchema(ctx context.Context, schema string) error
}

// Store reads and writes the tenants table.
type Store struct {
	db       *sqlx.DB
	migrator SchemaMigrator
	log      *zap.Logger
	now      func() time.Time
}

// NewStore returns a Store on the control-plane pool db.
func NewStore(db *sqlx.DB, migrator SchemaMigrator, log *zap.Logger) *Store {
	if log == nil {
		log = zap.L()
	}
	return &Store{db: db, migrator: migrator, log: log.Named("registry"), now: time.Now}
}

const columns = `id, name, subdomain, created_at, updated_at`

// Create registers a tenant and provisions its schema.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Tenant, error) {
	name := strings.TrimSpace(in.Name)

	var exists int
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(`SELECT COUNT(*) FROM tenants WHERE name = ?`), name)
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, fmt.Errorf("%w: %q", ErrConflict, name)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	t := &Tenant{ID: uuid.New(), Name: name, Subdomain: in.Subdomain, CreatedAt: now, UpdatedAt: now}

	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO tenants (`+columns+`) VALUES (:id, :name, :subdomain, :created_at, :updated_at)`, t)
	if database.IsDuplicateKey(err) {
		return nil, fmt.Errorf("%w: %q", ErrConflict, name)
	}
	if err != nil {
		return nil, err
	}

	schema := t.Key().Schema()
	if err := s.provision(ctx, schema); err != nil {
		s.log.Error("tenant provisioning failed", zap.String("schema", schema), zap.Error(err))
		if _, derr := s.db.ExecContext(context.WithoutCancel(ctx),
			s.db.Rebind(`DELETE FROM tenants WHERE id = ?`), t.ID); derr != nil {
			s.log.Error("tenant row cleanup failed", zap.String("id", t.ID.String()), zap.Error(derr))
		}
		return nil, err
	}

	s.log.Info("tenant created", zap.String("id", t.ID.String()), zap.String("name", t.Name), zap.String("schema", schema))
	return t, nil
}

func (s *Store) provision(ctx context.Context, schema string) error {
	if err := database.CreateSchema(ctx, s.db, s.db.DriverName(), schema); err != nil {
		return err
	}
	if s.migrator == nil {
		return nil
	}
	return s.migrator.MigrateSchema(ctx, schema)
}

// All returns every tenant, oldest first.
func (s *Store) All(ctx context.Context) ([]Tenant, error) {
	rows := []Tenant{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+columns+` FROM tenants ORDER BY created_at, id`); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByID fetches one tenant.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	var t Tenant
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`SELECT `+columns+` FROM tenants WHERE id = ?`), id)
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Schemas returns the schema of every tenant, oldest first.
func (s *Store) Schemas(ctx context.Context) ([]string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(all))
	for i, t := range all {
		out[i] = t.Key().Schema()
	}
	return out, nil
}
