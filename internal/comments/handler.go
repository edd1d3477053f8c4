package comments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/httpx"
	"coreflow-cms/internal/middleware"
	"coreflow-cms/internal/transport"
	"coreflow-cms/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
	onWrite func(ctx context.Context)
}

// NewHandler builds the moderation API. onWrite runs after approvals change so cached
// public pages showing comments can be dropped.
func NewHandler(service *Service, val *validation.Validator, log *slog.Logger, onWrite func(ctx context.Context)) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
		onWrite: onWrite,
	}
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 50, 200)
	if err != nil {
		log.Warn("admin comments list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	approved, err := httpx.ParseBool(r.URL.Query(), "approved")
	if err != nil {
		log.Warn("admin comments list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	filter := ListFilter{
		Approved:    approved,
		CaseStudyID: strings.TrimSpace(r.URL.Query().Get("case_study_id")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListForModeration(ctx, auth.PrincipalFromContext(r.Context()), filter, limit, offset)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			log.Warn("admin comments list: forbidden")
			transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		log.Error("admin comments list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin comments list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) AdminApprove(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "approve", h.service.Approve)
}

func (h *Handler) AdminDisapprove(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "disapprove", h.service.Disapprove)
}

type moderateFunc func(ctx context.Context, actor *auth.Principal, ids []string) (int64, error)

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, action string, apply moderateFunc) {
	log := h.logWithRequest(r)

	var req ModerationRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin comments " + action + ": invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin comments " + action + ": validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", h.val.Details(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	actor := auth.PrincipalFromContext(r.Context())
	n, err := apply(ctx, actor, req.IDs)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			log.Warn("admin comments " + action + ": forbidden")
			transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		log.Error("admin comments "+action+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if h.onWrite != nil {
		h.onWrite(ctx)
	}
	log.Info("admin comments "+action+": ok", slog.Int("requested", len(req.IDs)), slog.Int64("updated", n))
	transport.WriteJSON(w, http.StatusOK, map[string]int64{"updated": n})
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
