package registry

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/httpx"
)

// Service is the slice of *Store the handlers use.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*Tenant, error)
	All(ctx context.Context) ([]Tenant, error)
	ByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// Handler serves /tenants.  These routes are not tenant-scoped.
type Handler struct {
	svc Service
	log *zap.Logger
}

// NewHandler returns a Handler over svc.
func NewHandler(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.L()
	}
	return &Handler{svc: svc, log: log.Named("registry.http")}
}

// Routes mounts the handlers on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	return r
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.Create(r.Context(), in)
	switch {
	case errors.Is(err, ErrConflict):
		httpx.Error(w, http.StatusConflict, "Tenant with name '"+in.Name+"' already exists")
	case err != nil:
		h.internal(w, "create tenant", err)
	default:
		httpx.JSON(w, http.StatusCreated, t)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.All(r.Context())
	if err != nil {
		h.internal(w, "list tenants", err)
		return
	}
	httpx.JSON(w, http.StatusOK, all)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Tenant id must be a UUID")
		return
	}
	t, err := h.svc.ByID(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Tenant "+id.String()+" not found")
	case err != nil:
		h.internal(w, "get tenant", err)
	default:
		httpx.JSON(w, http.StatusOK, t)
	}
}

func (h *Handler) internal(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, zap.Error(err))
	httpx.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
