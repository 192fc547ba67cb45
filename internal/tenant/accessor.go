package tenant

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/httpx"
)

// Getter is the slice of *Cache the accessor depends on.
type Getter interface {
	Get(ctx context.Context, id ID) (Session, error)
}

// Accessor hands the current tenant's session to request handlers.  It
// borrows sessions from the cache and never closes them.
type Accessor struct {
	cache Getter
	log   *zap.Logger
}

// NewAccessor returns an Accessor backed by cache.  A nil log uses zap.L().
func NewAccessor(cache Getter, log *zap.Logger) *Accessor {
	if log == nil {
		log = zap.L()
	}
	return &Accessor{cache: cache, log: log.Named("tenant.accessor")}
}

// Session returns the session for the tenant stored in ctx.
func (a *Accessor) Session(ctx context.Context) (Session, error) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return nil, ErrNoTenantContext
	}
	return a.cache.Get(ctx, id)
}

// sessionKey is unexported to avoid context-key collisions.
type sessionKey struct{}

// SessionFromContext returns the session attached by Accessor.Middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s != nil
}

// Middleware resolves the session once per request and attaches it to the
// request context for the handlers below.  Must run after Resolve.
func (a *Accessor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := a.Session(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// fail maps session errors to client-safe responses.  Connection details
// stay in the log.
func (a *Accessor) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingTenantID):
		httpx.Error(w, http.StatusBadRequest, "Tenant ID is missing")
	case errors.Is(err, ErrNoTenantContext):
		a.log.Error("tenant session requested without tenant context",
			zap.String("path", r.URL.Path))
		httpx.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	case IsSessionCreation(err), errors.Is(err, ErrCacheClosed):
		a.log.Error("tenant session unavailable",
			zap.String("path", r.URL.Path), zap.Error(err))
		httpx.Error(w, http.StatusServiceUnavailable, "Could not connect to tenant database")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.Error(w, http.StatusServiceUnavailable, "Request cancelled while waiting for tenant database")
	default:
		a.log.Error("tenant session lookup", zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
