// internal/database/database_test.go
//
// Run: go test ./internal/database -v

package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

func TestQuoteIdent(t *testing.T) {
	cases := []struct {
		driver, name, want string
	}{
		{DriverPostgres, "tenant_acme", `"tenant_acme"`},
		{DriverPostgres, `tenant_a"b`, `"tenant_a""b"`},
		{DriverMySQL, "tenant_acme", "`tenant_acme`"},
		{DriverMySQL, "tenant_a`b", "`tenant_a``b`"},
	}
	for _, c := range cases {
		if got := QuoteIdent(c.driver, c.name); got != c.want {
			t.Errorf("QuoteIdent(%s, %q) = %s, want %s", c.driver, c.name, got, c.want)
		}
	}
}

func TestSearchPath(t *testing.T) {
	if got, want := SearchPath("tenant_acme"), `"tenant_acme", public`; got != want {
		t.Fatalf("SearchPath = %s, want %s", got, want)
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := MySQLDSN("app:old@tcp(db:3306)/control", "s3cret", "tenant_acme")
	if err != nil {
		t.Fatalf("MySQLDSN: %v", err)
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if cfg.DBName != "tenant_acme" || cfg.Passwd != "s3cret" || !cfg.ParseTime {
		t.Fatalf("unexpected config: db=%s pass=%s parseTime=%v", cfg.DBName, cfg.Passwd, cfg.ParseTime)
	}

	dsn, err = MySQLDSN("app:old@tcp(db:3306)/control", "", "")
	if err != nil {
		t.Fatalf("MySQLDSN: %v", err)
	}
	if !strings.Contains(dsn, "/control") || !strings.Contains(dsn, "app:old@") {
		t.Fatalf("empty overrides changed the dsn: %s", dsn)
	}
}

func TestOpenWithOptions_UnknownDriver(t *testing.T) {
	_, err := OpenWithOptions(context.Background(), Options{Driver: "sqlite"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v, want ErrUnknownDriver", err)
	}
}

func TestCurrentSchema(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db := sqlx.NewDb(mockDB, DriverPostgres)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT current_schema()`)).
		WillReturnRows(sqlmock.NewRows([]string{"current_schema"}).AddRow(nil))

	got, err := CurrentSchema(context.Background(), db)
	if err != nil {
		t.Fatalf("CurrentSchema: %v", err)
	}
	if got != "" {
		t.Fatalf("schema = %q, want empty for NULL", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreateSchema(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, DriverMySQL)

	mock.ExpectExec(regexp.QuoteMeta("CREATE DATABASE IF NOT EXISTS `tenant_acme`")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := CreateSchema(context.Background(), db, DriverMySQL, "tenant_acme"); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":        {nil, false},
		"plain":      {errors.New("boom"), false},
		"pg unique":  {fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		"pg other":   {&pgconn.PgError{Code: "23503"}, false},
		"mysql dup":  {&mysql.MySQLError{Number: 1062}, true},
		"mysql lock": {&mysql.MySQLError{Number: 1205}, false},
	}
	for name, c := range cases {
		if got := IsDuplicateKey(c.err); got != c.want {
			t.Errorf("%s: IsDuplicateKey = %v, want %v", name, got, c.want)
		}
	}
}
