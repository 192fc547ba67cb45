// internal/registry/repository_test.go
//
// Unit-tests for the tenant registry store using sqlmock.
//
// Run: go test ./internal/registry -v

package registry

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap/zaptest"
)

type recordingMigrator struct {
	schemas []string
	err     error
}

func (m *recordingMigrator) MigrateSchema(_ context.Context, schema string) error {
	m.schemas = append(m.schemas, schema)
	return m.err
}

func newMockStore(t *testing.T, mig SchemaMigrator) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	s := NewStore(sqlx.NewDb(mockDB, "pgx"), mig, zaptest.NewLogger(t))
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

func TestCreate(t *testing.T) {
	mig := &recordingMigrator{}
	s, mock := newMockStore(t, mig)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tenants WHERE name = $1`)).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tenants (id, name, subdomain, created_at, updated_at)`)).
		WithArgs(sqlmock.AnyArg(), "acme", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "tenant_[0-9a-f-]{36}"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	got, err := s.Create(context.Background(), CreateInput{Name: " acme "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Name != "acme" || got.ID == uuid.Nil {
		t.Fatalf("unexpected tenant: %+v", got)
	}
	if len(mig.schemas) != 1 || mig.schemas[0] != "tenant_"+got.ID.String() {
		t.Fatalf("migrated schemas = %v", mig.schemas)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	mig := &recordingMigrator{}
	s, mock := newMockStore(t, mig)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tenants WHERE name = $1`)).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := s.Create(context.Background(), CreateInput{Name: "acme"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(mig.schemas) != 0 {
		t.Fatalf("schema provisioned for a duplicate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreate_MigrationFailureRemovesRow(t *testing.T) {
	mig := &recordingMigrator{err: errors.New("relation already exists")}
	s, mock := newMockStore(t, mig)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tenants`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tenants`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tenants WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := s.Create(context.Background(), CreateInput{Name: "acme"}); err == nil {
		t.Fatalf("Create succeeded despite migration failure")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAllAndSchemas(t *testing.T) {
	s, mock := newMockStore(t, nil)
	a, b := uuid.New(), uuid.New()
	now := time.Now()

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "subdomain", "created_at", "updated_at"}).
			AddRow(a.String(), "first", nil, now, now).
			AddRow(b.String(), "second", "second", now, now)
	}
	q := regexp.QuoteMeta(`SELECT id, name, subdomain, created_at, updated_at FROM tenants ORDER BY created_at, id`)
	mock.ExpectQuery(q).WillReturnRows(rows())
	mock.ExpectQuery(q).WillReturnRows(rows())

	all, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 || all[0].ID != a || all[1].Subdomain == nil || *all[1].Subdomain != "second" {
		t.Fatalf("unexpected rows: %+v", all)
	}

	schemas, err := s.Schemas(context.Background())
	if err != nil {
		t.Fatalf("Schemas: %v", err)
	}
	if len(schemas) != 2 || !strings.HasPrefix(schemas[0], "tenant_") || schemas[0] != "tenant_"+a.String() {
		t.Fatalf("schemas = %v", schemas)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestByID_NotFound(t *testing.T) {
	s, mock := newMockStore(t, nil)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tenants WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "subdomain", "created_at", "updated_at"}))

	if _, err := s.ByID(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
