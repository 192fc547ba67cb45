package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/tenancy/internal/tenant"
)

// Tenant mirrors one row in the shared `tenants` table.  The tenant's data
// lives in its own schema, named by Key.
type Tenant struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Subdomain *string   `db:"subdomain"  json:"subdomain"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Key returns the session key (and schema name) for t.
func (t Tenant) Key() tenant.Key { return tenant.KeyFor(tenant.ID(t.ID.String())) }

// CreateInput is the body of POST /tenants.
type CreateInput struct {
	Name      string  `json:"name"      validate:"required,max=255"`
	Subdomain *string `json:"subdomain" validate:"omitempty,max=255,hostname_rfc1123"`
}
