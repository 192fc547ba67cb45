// internal/tenant/resolver.go
//
// Tenant resolution middleware.
//
// Context
// -------
// The resolver runs first on every tenant-scoped route.  It reads one
// header, rejects the request with 400 when the header is absent or blank,
// and otherwise stores the tenant id in the request context for the
// accessor.  It performs no I/O, so a rejected request never touches the
// cache or the database.
//
// Usage
// -----
//
//	r.Use(tenant.Resolve(tenant.NewHeaderResolver(cfg.HTTP.TenantHeader)))
//	id, ok := tenant.IDFromContext(r.Context())
package tenant

import (
	"context"
	"net/http"
	"strings"

	"github.com/yanizio/tenancy/internal/httpx"
)

// DefaultHeader carries the tenant id when no other header is configured.
const DefaultHeader = "X-Tenant-ID"

// idKey is unexported to avoid context-key collisions.
type idKey struct{}

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

// IDFromContext extracts the tenant id stored by the resolver.
func IDFromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(idKey{}).(ID)
	if !ok || id.Blank() {
		return "", false
	}
	return id, true
}

// Resolver extracts the tenant id from a request.
type Resolver interface {
	Resolve(r *http.Request) (ID, error)
}

// HeaderResolver reads the tenant id from a single request header.
type HeaderResolver struct {
	Header string
}

// NewHeaderResolver returns a resolver for header, or DefaultHeader when
// header is empty.
func NewHeaderResolver(header string) *HeaderResolver {
	if header == "" {
		header = DefaultHeader
	}
	return &HeaderResolver{Header: header}
}

// Resolve returns ErrMissingTenantID when the header is absent or blank.
func (h *HeaderResolver) Resolve(r *http.Request) (ID, error) {
	id := ID(strings.TrimSpace(r.Header.Get(h.Header)))
	if id.Blank() {
		return "", ErrMissingTenantID
	}
	return id, nil
}

// missingMessage names the header in the 400 body.
func missingMessage(res Resolver) string {
	if h, ok := res.(*HeaderResolver); ok {
		return "Tenant ID is missing in " + strings.ToLower(h.Header) + " header"
	}
	return "Tenant ID is missing"
}

// Resolve wraps next so that every request carries a tenant id.  Requests
// without one are rejected with 400 before next runs.
func Resolve(res Resolver) func(http.Handler) http.Handler {
	msg := missingMessage(res)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r)
			if err != nil {
				httpx.Error(w, http.StatusBadRequest, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}
