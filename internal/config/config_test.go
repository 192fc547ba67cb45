// internal/config/config_test.go
//
// Loader and secret-resolution tests against a temporary root.
//
// Run: go test ./internal/config -v

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
http:
  listen_addr: ":8080"
database:
  driver: pgx
  dsn: "postgres://app@localhost:5432/app?sslmode=disable"
  password: "vault:secret/tenancy/db#password"
  max_connections: 100
  reserved_connections: 10
  pool_size_per_tenant: 5
tenancy:
  idle_ttl: 10m
  create_timeout: 5s
log:
  level: debug
`

func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return root
}

func TestLoadFrom(t *testing.T) {
	root := writeRoot(t, sampleYAML)
	t.Setenv("TENANCY_DATABASE__POOL_SIZE_PER_TENANT", "9")

	cfg, err := LoadFrom(root)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTP.ListenAddr != ":8080" || cfg.HTTP.TenantHeader != "X-Tenant-ID" {
		t.Fatalf("unexpected http section: %+v", cfg.HTTP)
	}
	if cfg.Database.PoolSizePerTenant != 9 {
		t.Fatalf("env override ignored: pool_size_per_tenant = %d", cfg.Database.PoolSizePerTenant)
	}
	if cfg.Tenancy.IdleTTL != 10*time.Minute || cfg.Tenancy.CreateTimeout != 5*time.Second {
		t.Fatalf("durations not decoded: %+v", cfg.Tenancy)
	}
	if cfg.Paths.Root != root {
		t.Fatalf("root = %q, want %q", cfg.Paths.Root, root)
	}
	if Get() != cfg {
		t.Fatalf("Get did not return the cached config")
	}
}

func TestLoadFrom_ValidationFails(t *testing.T) {
	root := writeRoot(t, strings.Replace(sampleYAML, "driver: pgx", "driver: oracle", 1))
	_, err := LoadFrom(root)
	if err == nil || !strings.Contains(err.Error(), "database.driver") {
		t.Fatalf("err = %v, want a database.driver validation error", err)
	}
}

func TestEffectiveMaxEntries(t *testing.T) {
	db := Database{MaxConnections: 100, ReservedConnections: 10, PoolSizePerTenant: 5}
	if got := (Tenancy{}).EffectiveMaxEntries(db); got != 18 {
		t.Fatalf("derived = %d, want 18", got)
	}
	if got := (Tenancy{MaxEntries: 3}).EffectiveMaxEntries(db); got != 3 {
		t.Fatalf("explicit = %d, want 3", got)
	}
	tight := Database{MaxConnections: 4, ReservedConnections: 2, PoolSizePerTenant: 5}
	if got := (Tenancy{}).EffectiveMaxEntries(tight); got != 1 {
		t.Fatalf("tight budget = %d, want 1", got)
	}
}

type mapSource map[string]string

func (m mapSource) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := m[path+"#"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestResolveSecrets(t *testing.T) {
	cfg := &Config{
		Database: Database{DSN: "postgres://app@db/app", Password: "vault:secret/tenancy/db#password"},
		Vault:    Vault{Enabled: true},
	}
	if err := ResolveSecrets(context.Background(), cfg, mapSource{"secret/tenancy/db#password": "hunter2"}); err != nil {
		t.Fatalf("ResolveSecrets: %v", err)
	}
	if cfg.Database.Password != "hunter2" {
		t.Fatalf("password = %q, want hunter2", cfg.Database.Password)
	}
	if cfg.Database.DSN != "postgres://app@db/app" {
		t.Fatalf("literal DSN was rewritten: %q", cfg.Database.DSN)
	}
}

func TestResolveSecrets_Disabled(t *testing.T) {
	cfg := &Config{Database: Database{Password: "vault:secret/db#password"}}
	if err := ResolveSecrets(context.Background(), cfg, nil); !errors.Is(err, ErrVaultDisabled) {
		t.Fatalf("err = %v, want ErrVaultDisabled", err)
	}
}

func TestParseRef(t *testing.T) {
	if _, _, ok, err := ParseRef("plain"); ok || err != nil {
		t.Fatalf("literal parsed as reference")
	}
	path, key, ok, err := ParseRef("vault:kv/app/db#pw")
	if !ok || err != nil || path != "kv/app/db" || key != "pw" {
		t.Fatalf("ParseRef = %q %q %v %v", path, key, ok, err)
	}
	if _, _, _, err := ParseRef("vault:kv/app/db"); err == nil {
		t.Fatalf("reference without key accepted")
	}
}
