// internal/tenant/key.go
//
// Tenant identifier and session-key helpers.
//
// Context
// -------
// A tenant arrives as an opaque string on each request.  Everything the
// cache, the factory, and the migration tool need is derived from it with
// one deterministic rule:
//
//	tenant id "3f2a…"  →  key "tenant_3f2a…"
//
// The key doubles as the cache map key and as the schema (Postgres) or
// database (MySQL) name, so the migration tooling and the live request path
// always agree on where a tenant's tables live.
//
// Notes
// -----
//   - No validation beyond "non-blank" happens here.  Identifier quoting is
//     the SQL layer's job (see internal/database).
//   - Oxford commas, two spaces after periods.
package tenant

import "strings"

// KeyPrefix is prepended to every tenant id to build its Key.
const KeyPrefix = "tenant_"

// ID is the opaque tenant identifier supplied by the caller.
type ID string

// Key is the cache key and schema name for one tenant.
type Key string

// KeyFor derives the session key for id.
func KeyFor(id ID) Key { return Key(KeyPrefix + string(id)) }

// Key returns the session key for id.
func (id ID) Key() Key { return KeyFor(id) }

// Blank reports whether id carries no usable value.
func (id ID) Blank() bool { return strings.TrimSpace(string(id)) == "" }

func (k Key) String() string { return string(k) }

// Schema returns the schema or database name the key maps to.
func (k Key) Schema() string { return string(k) }
