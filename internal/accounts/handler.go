package accounts

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

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	tokens  *auth.Manager
	val     *validation.Validator
	log     *slog.Logger
	onWrite func(ctx context.Context)
}

// NewHandler builds the account API. onWrite runs after a user (and their comments) is
// deleted.
func NewHandler(service *Service, tokens *auth.Manager, val *validation.Validator, log *slog.Logger, onWrite func(ctx context.Context)) *Handler {
	return &Handler{
		service: service,
		tokens:  tokens,
		val:     val,
		log:     log,
		onWrite: onWrite,
	}
}

type TokenResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token exchanges credentials for a bearer token carrying the same claims as the session
// cookie.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req LoginRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("auth token: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("auth token: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", h.val.Details(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.service.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.Warn("auth token: invalid credentials", slog.String("username", NormalizeUsername(req.Username)))
			transport.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		log.Error("auth token: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	token, err := h.tokens.NewSessionToken(*user.Principal())
	if err != nil {
		log.Error("auth token: token error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}

	log.Info("auth token: ok", slog.String("user_id", user.ID))
	transport.WriteJSON(w, http.StatusOK, TokenResponse{
		Status:      "ok",
		AccessToken: token,
		ExpiresIn:   int64(h.tokens.SessionTTL.Seconds()),
	})
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 50, 200)
	if err != nil {
		log.Warn("admin users list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.service.List(ctx, limit, offset)
	if err != nil {
		log.Error("admin users list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin users list: ok", slog.Int("count", len(users)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  users,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) AdminSetRole(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin users role: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req RoleRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin users role: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin users role: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", h.val.Details(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	user, err := h.service.SetRole(ctx, auth.PrincipalFromContext(r.Context()), id, req.Role)
	if err != nil {
		h.writeServiceError(w, log.With(slog.String("user_id", id)), "role", err)
		return
	}

	log.Info("admin users role: ok", slog.String("user_id", id), slog.String("role", user.Role))
	transport.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin users delete: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, auth.PrincipalFromContext(r.Context()), id); err != nil {
		h.writeServiceError(w, log.With(slog.String("user_id", id)), "delete", err)
		return
	}
	if h.onWrite != nil {
		h.onWrite(ctx)
	}

	log.Info("admin users delete: ok", slog.String("user_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, log *slog.Logger, action string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn("admin users " + action + ": not found")
		transport.WriteError(w, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, ErrForbidden):
		log.Warn("admin users " + action + ": forbidden")
		transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, ErrInvalidRole):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"role": "invalid"})
	default:
		log.Error("admin users "+action+": database error", slog.String("error", err.Error()))
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
