// internal/migrate/migrate.go
//
// Schema migrations for the control plane and for tenant schemas.
//
// Context
// -------
// Two embedded migration sets live under sql/<dialect>/:
//
//   - public – the `tenants` registry, applied once to the shared schema.
//   - tenant – per-tenant tables (`posts`), applied to every tenant schema.
//
// Each run opens a short-lived, single-connection pool scoped to the target
// schema (Postgres search_path, MySQL database) and drives it with a goose
// Provider.  The two sets keep separate version tables so a tenant schema
// never mistakes the public history for its own.
//
// Notes
// -----
//   - goose wraps each Postgres migration in a transaction, so a failed Up
//     leaves the failing schema at its previous version.
//   - Oxford commas, two spaces after periods.
package migrate

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	goosedb "github.com/pressly/goose/v3/database"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/database"
)

//go:embed sql
var migrations embed.FS

// Scope selects a migration set.
type Scope string

const (
	ScopePublic Scope = "public"
	ScopeTenant Scope = "tenant"
)

// versionTable returns the goose bookkeeping table for scope.
func (s Scope) versionTable() string { return "goose_" + string(s) + "_version" }

// Files returns the embedded migrations for driver and scope.
func Files(driver string, scope Scope) (fs.FS, error) {
	dir := "sql/postgres/" + string(scope)
	if driver == database.DriverMySQL {
		dir = "sql/mysql/" + string(scope)
	}
	return fs.Sub(migrations, dir)
}

// Migrator applies the embedded migrations through goose.
type Migrator struct {
	Base database.Options
	log  *zap.Logger

	// open defaults to database.OpenWithOptions.
	open func(ctx context.Context, opts database.Options) (*sqlx.DB, error)
}

// New returns a Migrator for the database described by base.
func New(base database.Options, log *zap.Logger) *Migrator {
	if log == nil {
		log = zap.L()
	}
	return &Migrator{Base: base, log: log.Named("migrate"), open: database.OpenWithOptions}
}

// provider opens a pool for schema and wraps it in a goose Provider.  The
// caller closes the returned pool.
func (m *Migrator) provider(ctx context.Context, scope Scope, schema string) (*goose.Provider, *sqlx.DB, error) {
	opts := m.Base
	opts.Schema = schema
	opts.MaxOpenConns, opts.MaxIdleConns = 1, 1

	db, err := m.open(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", schemaLabel(schema), err)
	}

	dialect := goosedb.DialectPostgres
	if m.Base.Driver == database.DriverMySQL {
		dialect = goosedb.DialectMySQL
	}
	store, err := goosedb.NewStore(dialect, scope.versionTable())
	if err == nil {
		var fsys fs.FS
		if fsys, err = Files(m.Base.Driver, scope); err == nil {
			var p *goose.Provider
			if p, err = goose.NewProvider("", db.DB, fsys, goose.WithStore(store)); err == nil {
				return p, db, nil
			}
		}
	}
	_ = db.Close()
	return nil, nil, fmt.Errorf("goose provider: %w", err)
}

// MigratePublic brings the shared schema up to date.
func (m *Migrator) MigratePublic(ctx context.Context) error {
	schema := ""
	if m.Base.Driver == database.DriverPostgres {
		schema = "public"
	}
	_, err := m.up(ctx, ScopePublic, schema)
	return err
}

// Up applies every pending tenant migration to schema and reports how many
// ran.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	return m.up(ctx, ScopeTenant, schema)
}

// MigrateSchema is Up without the count.
func (m *Migrator) MigrateSchema(ctx context.Context, schema string) error {
	_, err := m.Up(ctx, schema)
	return err
}

func (m *Migrator) up(ctx context.Context, scope Scope, schema string) (int, error) {
	p, db, err := m.provider(ctx, scope, schema)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	results, err := p.Up(ctx)
	var perr *goose.PartialError
	if errors.As(err, &perr) {
		results = append(perr.Applied, perr.Failed)
	}
	applied := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		m.logResult(schema, "up", r)
		if r.Error == nil {
			applied++
		}
	}
	if err != nil {
		return applied, fmt.Errorf("migrate %s: %w", schemaLabel(schema), err)
	}
	return applied, nil
}

// Down reverts the most recent tenant migration of schema.
func (m *Migrator) Down(ctx context.Context, schema string) error {
	p, db, err := m.provider(ctx, ScopeTenant, schema)
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := p.Down(ctx)
	if r != nil {
		m.logResult(schema, "down", r)
	}
	if err != nil {
		return fmt.Errorf("revert %s: %w", schemaLabel(schema), err)
	}
	return nil
}

// Pending reports how many tenant migrations have not been applied to
// schema.
func (m *Migrator) Pending(ctx context.Context, schema string) (int, error) {
	p, db, err := m.provider(ctx, ScopeTenant, schema)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	status, err := p.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("status %s: %w", schemaLabel(schema), err)
	}
	n := 0
	for _, s := range status {
		if s.State == goose.StatePending {
			n++
		}
	}
	return n, nil
}

func (m *Migrator) logResult(schema, direction string, r *goose.MigrationResult) {
	fields := []zap.Field{
		zap.String("schema", schemaLabel(schema)),
		zap.String("direction", direction),
		zap.Duration("duration", r.Duration),
	}
	if r.Source != nil {
		fields = append(fields, zap.Int64("version", r.Source.Version), zap.String("file", r.Source.Path))
	}
	if r.Error != nil {
		m.log.Error("migration failed", append(fields, zap.Error(r.Error))...)
		return
	}
	m.log.Info("migration applied", fields...)
}

func schemaLabel(schema string) string {
	if schema == "" {
		return "(default)"
	}
	return schema
}
