// Package database centralises sqlx connection helpers for both supported
// dialects.  The default driver is jackc/pgx (registered as "pgx"), where a
// tenant schema maps to a Postgres schema on the shared database.  The
// go-sql-driver/mysql driver is also supported; there a tenant schema maps
// to its own MySQL database, because MySQL treats the two as synonyms.
//
// Public entry points:
//
//	Open(ctx, driver, dsn)      – control-plane pool with conservative sizes.
//	OpenWithOptions(ctx, opts)  – fine-grained control, optional schema scope.
//
// Both helpers Ping the database before returning so callers can fail fast.
// A pool that fails its Ping is closed before the error is returned.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// Supported driver names.
const (
	DriverPostgres = "pgx"
	DriverMySQL    = "mysql"
)

// ErrUnknownDriver is returned for any driver other than pgx or mysql.
var ErrUnknownDriver = errors.New("database: unknown driver")

// Options tunes a single pool.  Schema is optional; when set, every
// connection in the pool is scoped to it.
type Options struct {
	Driver          string
	DSN             string
	Password        string // overrides the DSN password when non-empty
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.  Used for the control-plane pool.
func Open(ctx context.Context, driver, dsn, password string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, Options{
		Driver:          driver,
		DSN:             dsn,
		Password:        password,
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
}

// OpenWithOptions builds the pool described by opts and pings it.
func OpenWithOptions(ctx context.Context, opts Options) (*sqlx.DB, error) {
	db, err := connect(opts)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// connect opens (without dialing) a pool for the requested driver.
func connect(opts Options) (*sqlx.DB, error) {
	switch opts.Driver {
	case DriverPostgres:
		cfg, err := pgx.ParseConfig(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		if opts.Password != "" {
			cfg.Password = opts.Password
		}
		if opts.Schema != "" {
			if cfg.RuntimeParams == nil {
				cfg.RuntimeParams = map[string]string{}
			}
			cfg.RuntimeParams["search_path"] = SearchPath(opts.Schema)
		}
		return sqlx.NewDb(stdlib.OpenDB(*cfg), DriverPostgres), nil

	case DriverMySQL:
		dsn, err := MySQLDSN(opts.DSN, opts.Password, opts.Schema)
		if err != nil {
			return nil, err
		}
		return sqlx.Open(DriverMySQL, dsn)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

// SearchPath renders the Postgres search_path for a tenant schema.  The
// public schema stays reachable for shared extensions and functions.
func SearchPath(schema string) string {
	return pgx.Identifier{schema}.Sanitize() + ", public"
}

// MySQLDSN rewrites dsn so that it targets schema (when non-empty) and uses
// password (when non-empty).  parseTime is always enabled.
func MySQLDSN(dsn, password, schema string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if password != "" {
		cfg.Passwd = password
	}
	if schema != "" {
		cfg.DBName = schema
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
