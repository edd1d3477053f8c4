package taxonomy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"coreflow-cms/internal/httpx"
	"coreflow-cms/internal/middleware"
	"coreflow-cms/internal/transport"
	"coreflow-cms/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
	onWrite func(ctx context.Context)
}

// NewHandler builds the term API. onWrite, when set, runs after every successful mutation
// so cached public pages that embed term names can be dropped.
func NewHandler(service *Service, val *validation.Validator, log *slog.Logger, onWrite func(ctx context.Context)) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
		onWrite: onWrite,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	kind, ok := ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		log.Warn("terms list: invalid kind")
		transport.WriteError(w, http.StatusNotFound, "unknown term kind", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.service.List(ctx, kind)
	if err != nil {
		log.Error("terms list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("terms list: ok", slog.String("kind", string(kind)), slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	kind, ok := ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		log.Warn("admin terms create: invalid kind")
		transport.WriteError(w, http.StatusNotFound, "unknown term kind", nil)
		return
	}

	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin terms create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin terms create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", h.val.Details(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	item, err := h.service.Create(ctx, kind, req)
	if err != nil {
		h.writeServiceError(w, log, "admin terms create", err)
		return
	}

	h.written(ctx)
	log.Info("admin terms create: ok", slog.String("term_id", item.ID), slog.String("kind", string(kind)))
	transport.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin terms update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin terms update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", h.val.Details(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	item, err := h.service.Rename(ctx, id, req)
	if err != nil {
		h.writeServiceError(w, log, "admin terms update", err)
		return
	}

	h.written(ctx)
	log.Info("admin terms update: ok", slog.String("term_id", id))
	transport.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	removed, err := h.service.Delete(ctx, id)
	if err != nil {
		h.writeServiceError(w, log, "admin terms delete", err)
		return
	}

	h.written(ctx)
	log.Info("admin terms delete: ok", slog.String("term_id", id), slog.Int64("case_studies_removed", removed))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":               "deleted",
		"case_studies_removed": removed,
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn(op + ": not found")
		transport.WriteError(w, http.StatusNotFound, "term not found", nil)
	case errors.Is(err, ErrNameExists):
		log.Warn(op + ": name exists")
		transport.WriteError(w, http.StatusConflict, "name already exists", nil)
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidKind):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"name": "invalid"})
	default:
		log.Error(op+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
}

func (h *Handler) written(ctx context.Context) {
	if h.onWrite != nil {
		h.onWrite(ctx)
	}
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
