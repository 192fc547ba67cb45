package posts

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/httpx"
	"github.com/yanizio/tenancy/internal/tenant"
)

// Handler serves /posts.  Mount it behind tenant.Resolve and
// Accessor.Middleware; every handler reads the session they attached.
type Handler struct {
	log *zap.Logger
}

// NewHandler returns a Handler.
func NewHandler(log *zap.Logger) *Handler {
	if log == nil {
		log = zap.L()
	}
	return &Handler{log: log.Named("posts.http")}
}

// Routes mounts the handlers on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/published", h.published)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	return r
}

// session returns the borrowed session, or writes 500 when the route was
// mounted without the accessor.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (tenant.Session, bool) {
	s, ok := tenant.SessionFromContext(r.Context())
	if !ok {
		h.log.Error("posts route reached without a tenant session", zap.String("path", r.URL.Path))
		httpx.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
	return s, ok
}

func (h *Handler) postID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Post id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := Create(r.Context(), s, in)
	if err != nil {
		h.fail(w, s, "create post", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	all, err := All(r.Context(), s)
	if err != nil {
		h.fail(w, s, "list posts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, all)
}

func (h *Handler) published(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	all, err := Published(r.Context(), s)
	if err != nil {
		h.fail(w, s, "list published posts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, all)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	p, err := ByID(r.Context(), s, id)
	if err != nil {
		h.fail(w, s, "get post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := Update(r.Context(), s, id, in)
	if err != nil {
		h.fail(w, s, "update post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	if err := Delete(r.Context(), s, id); err != nil {
		h.fail(w, s, "delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, s tenant.Session, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "Post not found")
		return
	}
	h.log.Error(op, zap.String("key", s.Key().String()), zap.Error(err))
	httpx.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
