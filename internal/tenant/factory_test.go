// internal/tenant/factory_test.go
//
// SQLFactory against sqlmock pools.
//
// Run: go test ./internal/tenant -v

package tenant

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/tenancy/internal/database"
)

// mockOpen returns an Open func that hands out db and records the options
// it was called with.
func mockOpen(db *sqlx.DB, seen *database.Options) func(context.Context, database.Options) (*sqlx.DB, error) {
	return func(_ context.Context, opts database.Options) (*sqlx.DB, error) {
		*seen = opts
		return db, nil
	}
}

func TestSQLFactory_Create(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db := sqlx.NewDb(mockDB, database.DriverPostgres)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT current_schema()`)).
		WillReturnRows(sqlmock.NewRows([]string{"current_schema"}).AddRow("tenant_acme"))

	var seen database.Options
	f := NewSQLFactory(database.Options{Driver: database.DriverPostgres, DSN: "postgres://app@db/app"}, 5)
	f.Open = mockOpen(db, &seen)

	s, err := f.Create(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Key() != "tenant_acme" {
		t.Fatalf("key = %q, want tenant_acme", s.Key())
	}
	if seen.Schema != "tenant_acme" || seen.MaxOpenConns != 5 || seen.MaxIdleConns != 2 {
		t.Fatalf("unexpected pool options: %+v", seen)
	}
	if seen.DSN != "postgres://app@db/app" {
		t.Fatalf("base DSN not carried through: %q", seen.DSN)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLFactory_SchemaMismatchClosesPool(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db := sqlx.NewDb(mockDB, database.DriverPostgres)

	// A missing schema leaves search_path falling through to public.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT current_schema()`)).
		WillReturnRows(sqlmock.NewRows([]string{"current_schema"}).AddRow("public"))
	mock.ExpectClose()

	var seen database.Options
	f := NewSQLFactory(database.Options{Driver: database.DriverPostgres}, 1)
	f.Open = mockOpen(db, &seen)

	_, err = f.Create(context.Background(), "ghost")
	if !IsSessionCreation(err) {
		t.Fatalf("err = %v, want SessionCreationError", err)
	}
	var sce *SessionCreationError
	if errors.As(err, &sce) && sce.Key != "tenant_ghost" {
		t.Fatalf("error key = %q, want tenant_ghost", sce.Key)
	}
	if seen.MaxIdleConns != 1 {
		t.Fatalf("MaxIdleConns = %d, want at least 1", seen.MaxIdleConns)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLFactory_MySQLUsesDatabase(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db := sqlx.NewDb(mockDB, database.DriverMySQL)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DATABASE()`)).
		WillReturnRows(sqlmock.NewRows([]string{"DATABASE()"}).AddRow("tenant_acme"))

	var seen database.Options
	f := NewSQLFactory(database.Options{Driver: database.DriverMySQL}, 4)
	f.Open = mockOpen(db, &seen)

	if _, err := f.Create(context.Background(), "acme"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLFactory_OpenError(t *testing.T) {
	boom := errors.New("connection refused")
	f := NewSQLFactory(database.Options{Driver: database.DriverPostgres}, 2)
	f.Open = func(context.Context, database.Options) (*sqlx.DB, error) { return nil, boom }

	_, err := f.Create(context.Background(), "acme")
	if !IsSessionCreation(err) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want SessionCreationError wrapping the cause", err)
	}
}
