// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   - optional `.env`                           – dotenv values,
//   - `conf/global.yaml`                        – primary static file,
//   - `TENANCY_`-prefixed environment overrides – highest precedence.
//
// A string of the form `vault:<path>#<key>` in a secret-bearing field is
// replaced through the Vault client by `ResolveSecrets`, after validation
// and before any connection is opened.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   - Durations accept Go syntax ("10m", "15s").
//   - The `Paths` block is filled at runtime; YAML must not try to set it.
//   - Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"time"

	"github.com/yanizio/tenancy/internal/database"
	"github.com/yanizio/tenancy/internal/tenant"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr"      validate:"required,hostname_port"`
	TenantHeader    string        `koanf:"tenant_header"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

//
// Database section
//

// Database describes the shared server every tenant schema lives on.
//
// The DSN template stays in YAML so operators can tweak host, port, or
// flags without touching Vault.  The password is usually a Vault reference
// and overrides any password embedded in the DSN.
//
// MaxConnections and ReservedConnections bound the per-tenant pools: the
// cache never holds more than (max − reserved) / pool_size_per_tenant
// sessions unless tenancy.max_entries says otherwise.
type Database struct {
	Driver              string `koanf:"driver"               validate:"oneof=pgx mysql"`
	DSN                 string `koanf:"dsn"                  validate:"required"`
	Password            string `koanf:"password"`
	MaxConnections      int    `koanf:"max_connections"      validate:"gte=1"`
	ReservedConnections int    `koanf:"reserved_connections" validate:"gte=0,ltfield=MaxConnections"`
	PoolSizePerTenant   int    `koanf:"pool_size_per_tenant" validate:"gte=1"`
}

// Options converts the section into control-plane pool options.
func (d Database) Options() database.Options {
	return database.Options{
		Driver:   d.Driver,
		DSN:      d.DSN,
		Password: d.Password,
	}
}

//
// Tenancy section
//

// Tenancy tunes the tenant session cache.  Zero values fall back to the
// cache defaults.
type Tenancy struct {
	MaxEntries     int           `koanf:"max_entries"     validate:"gte=0"`
	IdleTTL        time.Duration `koanf:"idle_ttl"        validate:"gte=0"`
	SweepInterval  time.Duration `koanf:"sweep_interval"  validate:"gte=0"`
	CreateTimeout  time.Duration `koanf:"create_timeout"  validate:"gte=0"`
	DisposeTimeout time.Duration `koanf:"dispose_timeout" validate:"gte=0"`
}

// EffectiveMaxEntries returns MaxEntries, or derives it from the database
// connection budget when unset.  Never less than one.
func (t Tenancy) EffectiveMaxEntries(db Database) int {
	if t.MaxEntries > 0 {
		return t.MaxEntries
	}
	if db.PoolSizePerTenant <= 0 {
		return tenant.DefaultMaxEntries
	}
	return max((db.MaxConnections-db.ReservedConnections)/db.PoolSizePerTenant, 1)
}

// CacheOptions converts the section into tenant.Options.
func (t Tenancy) CacheOptions(db Database) tenant.Options {
	return tenant.Options{
		MaxEntries:     t.EffectiveMaxEntries(db),
		IdleTTL:        t.IdleTTL,
		SweepInterval:  t.SweepInterval,
		CreateTimeout:  t.CreateTimeout,
		DisposeTimeout: t.DisposeTimeout,
	}
}

//
// Log section
//

// Log selects verbosity and console tee.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// Vault section
//

// Vault toggles secret resolution.  Address and token come from the
// standard VAULT_ADDR and VAULT_TOKEN variables.
type Vault struct {
	Enabled  bool          `koanf:"enabled"`
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or TENANCY_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // TENANCY_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load().
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Tenancy  Tenancy  `koanf:"tenancy"`
	Log      Log      `koanf:"log"`
	Vault    Vault    `koanf:"vault"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

// applyDefaults fills fields that have a sensible zero-config value.
func (c *Config) applyDefaults() {
	if c.HTTP.TenantHeader == "" {
		c.HTTP.TenantHeader = tenant.DefaultHeader
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 20 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = database.DriverPostgres
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 100
	}
	if c.Database.PoolSizePerTenant == 0 {
		c.Database.PoolSizePerTenant = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Vault.CacheTTL == 0 {
		c.Vault.CacheTTL = 5 * time.Minute
	}
}
