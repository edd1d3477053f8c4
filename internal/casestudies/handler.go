package casestudies

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/httpx"
	"coreflow-cms/internal/middleware"
	"coreflow-cms/internal/transport"
	"coreflow-cms/internal/validation"

	"github.com/go-chi/chi/v5"
)

// CommentReader lists the comments a viewer may see on a case study.
type CommentReader interface {
	Visible(ctx context.Context, viewer *auth.Principal, caseStudyID string) ([]comments.Comment, error)
}

type Handler struct {
	service  *Service
	comments CommentReader
	val      *validation.Validator
	log      *slog.Logger
}

func NewHandler(service *Service, commentReader CommentReader, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		comments: commentReader,
		val:      val,
		log:      log,
	}
}

func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	page, err := httpx.ParsePage(r.URL.Query())
	if err != nil {
		log.Warn("case studies public list: invalid page", slog.String("page", r.URL.Query().Get("page")))
		transport.WriteError(w, http.StatusNotFound, "page not found", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := h.service.ListPage(ctx, page)
	if err != nil {
		if errors.Is(err, ErrPageNotFound) {
			log.Warn("case studies public list: page not found", slog.Int("page", page))
			transport.WriteError(w, http.StatusNotFound, "page not found", nil)
			return
		}
		log.Error("case studies public list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("case studies public list: ok", slog.Int("page", page), slog.Int("count", len(result.Items)))
	transport.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) PublicGetBySlug(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		log.Warn("case studies public get: missing slug")
		transport.WriteError(w, http.StatusBadRequest, "missing slug", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.service.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("case studies public get: not found", slog.String("slug", slug))
			transport.WriteError(w, http.StatusNotFound, "case study not found", nil)
			return
		}
		log.Error("case studies public get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	visible := make([]comments.Comment, 0)
	if h.comments != nil {
		visible, err = h.comments.Visible(ctx, auth.PrincipalFromContext(r.Context()), item.ID)
		if err != nil {
			log.Error("case studies public get: comments error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
	}

	log.Info("case studies public get: ok", slog.String("slug", slug), slog.Int("comments", len(visible)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"case_study": item,
		"comments":   visible,
	})
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		log.Warn("admin case studies list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	filter := ListFilter{Title: r.URL.Query().Get("q")}
	items, total, err := h.service.ListAdmin(ctx, filter, limit, offset)
	if err != nil {
		log.Error("admin case studies list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin case studies list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin case studies create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin case studies create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", h.val.Details(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	item, err := h.service.Create(ctx, req)
	if err != nil {
		h.writeServiceError(w, log, "create", err)
		return
	}

	log.Info("admin case studies create: ok", slog.String("case_study_id", item.ID), slog.String("slug", item.Slug))
	transport.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin case studies update: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin case studies update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin case studies update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", h.val.Details(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	item, err := h.service.Update(ctx, id, req)
	if err != nil {
		h.writeServiceError(w, log.With(slog.String("case_study_id", id)), "update", err)
		return
	}

	log.Info("admin case studies update: ok", slog.String("case_study_id", id), slog.String("slug", item.Slug))
	transport.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin case studies delete: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		h.writeServiceError(w, log.With(slog.String("case_study_id", id)), "delete", err)
		return
	}

	log.Info("admin case studies delete: ok", slog.String("case_study_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, log *slog.Logger, action string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn("admin case studies " + action + ": not found")
		transport.WriteError(w, http.StatusNotFound, "case study not found", nil)
	case errors.Is(err, ErrSlugExists):
		log.Warn("admin case studies " + action + ": slug exists")
		transport.WriteError(w, http.StatusConflict, "slug already exists", nil)
	case errors.Is(err, ErrTitleExists):
		log.Warn("admin case studies " + action + ": title exists")
		transport.WriteError(w, http.StatusConflict, "title already exists", nil)
	case errors.Is(err, ErrInvalidSlug):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"slug": "invalid"})
	case errors.Is(err, ErrTermNotFound):
		log.Warn("admin case studies "+action+": unknown term", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"terms": err.Error()})
	default:
		log.Error("admin case studies "+action+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
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
