// internal/database/schema.go
//
// Dialect-aware schema helpers shared by the session factory, the tenant
// registry, and the migration tool.
//
// Notes
// -----
//   - Every helper dispatches on db.DriverName(), so sqlmock pools built
//     with sqlx.NewDb(mock, "pgx") exercise the Postgres branch.
//   - Identifiers are always quoted; tenant ids are caller supplied.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// QuoteIdent quotes name for use as an identifier in driver's dialect.
func QuoteIdent(driver, name string) string {
	if driver == DriverMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return pgx.Identifier{name}.Sanitize()
}

// CurrentSchema reports the schema (Postgres) or database (MySQL) that
// unqualified table names resolve to on one connection of db.  An empty
// string means none is selected.
func CurrentSchema(ctx context.Context, db *sqlx.DB) (string, error) {
	q := `SELECT current_schema()`
	if db.DriverName() == DriverMySQL {
		q = `SELECT DATABASE()`
	}
	var name sql.NullString
	if err := db.QueryRowxContext(ctx, q).Scan(&name); err != nil {
		return "", err
	}
	return name.String, nil
}

// CreateSchema provisions an empty schema (or MySQL database) if missing.
func CreateSchema(ctx context.Context, db sqlx.ExecerContext, driver, name string) error {
	kw := "SCHEMA"
	if driver == DriverMySQL {
		kw = "DATABASE"
	}
	q := fmt.Sprintf(`CREATE %s IF NOT EXISTS %s`, kw, QuoteIdent(driver, name))
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create schema %s: %w", name, err)
	}
	return nil
}

// IsDuplicateKey detects unique-constraint violations on either dialect
// (Postgres SQLSTATE 23505, MySQL error 1062).
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

// IsNotFound reports whether err means "no rows".
func IsNotFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }
