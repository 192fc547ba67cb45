// internal/migrate/all.go
//
// Fleet-wide tenant migration.
//
// Context
// -------
// MigrateAll walks tenant schemas in registration order (oldest first).  If
// one fails, every schema this run already advanced is stepped back down by
// exactly the number of migrations the run applied to it, newest schema
// first, and the failure is returned.  Schemas the run did not touch are
// left alone.
//
// RevertAll steps every schema back one migration, newest first.  It keeps
// going after a failure and returns all failures joined.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Runner migrates one schema.  *Migrator implements it.
type Runner interface {
	Up(ctx context.Context, schema string) (int, error)
	Down(ctx context.Context, schema string) error
}

// MigrateAll applies pending migrations to schemas, which must be ordered
// oldest tenant first.
func MigrateAll(ctx context.Context, r Runner, schemas []string, log *zap.Logger) error {
	type step struct {
		schema  string
		applied int
	}
	var done []step

	for _, schema := range schemas {
		n, err := r.Up(ctx, schema)
		if err != nil {
			// Migrations that did apply before the failure are undone too.
			if n > 0 {
				done = append(done, step{schema, n})
			}
			log.Error("tenant migration failed, rolling back this run",
				zap.String("schema", schema), zap.Int("rollback_schemas", len(done)), zap.Error(err))

			for i := len(done) - 1; i >= 0; i-- {
				for range done[i].applied {
					if derr := r.Down(context.WithoutCancel(ctx), done[i].schema); derr != nil {
						log.Error("rollback failed", zap.String("schema", done[i].schema), zap.Error(derr))
						break
					}
				}
			}
			return fmt.Errorf("schema %s: %w", schema, err)
		}
		if n > 0 {
			done = append(done, step{schema, n})
		}
		log.Info("tenant schema migrated", zap.String("schema", schema), zap.Int("applied", n))
	}
	log.Info("all tenant schemas migrated", zap.Int("schemas", len(schemas)), zap.Int("changed", len(done)))
	return nil
}

// RevertAll reverts the latest migration of every schema, newest tenant
// first.  schemas must be ordered oldest tenant first.
func RevertAll(ctx context.Context, r Runner, schemas []string, log *zap.Logger) error {
	var errs []error
	for i := len(schemas) - 1; i >= 0; i-- {
		schema := schemas[i]
		if err := r.Down(ctx, schema); err != nil {
			log.Error("tenant revert failed", zap.String("schema", schema), zap.Error(err))
			errs = append(errs, fmt.Errorf("schema %s: %w", schema, err))
			continue
		}
		log.Info("tenant schema reverted", zap.String("schema", schema))
	}
	return errors.Join(errs...)
}
