package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"coreflow-cms/internal/accounts"
	"coreflow-cms/internal/app"
	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/config"
	"coreflow-cms/internal/flash"
	"coreflow-cms/internal/middleware"
	"coreflow-cms/internal/taxonomy"
	"coreflow-cms/internal/transport"
	"coreflow-cms/internal/validation"
	"coreflow-cms/internal/web"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// newRouter mounts the JSON API and the server-rendered site on one chi router.
func newRouter(a *app.App) (http.Handler, error) {
	cfg := a.Cfg
	logger := a.Log
	val := validation.New()

	site, err := web.New(web.Options{
		CaseStudies:     a.CaseStudies,
		Comments:        a.Comments,
		Accounts:        a.Accounts,
		Tokens:          a.Tokens,
		Validator:       val,
		Log:             logger,
		StaticURL:       cfg.StaticURL,
		CookieSecure:    cfg.CookieSecure,
		CommentsChanged: a.InvalidatePublic,
	})
	if err != nil {
		return nil, err
	}

	termsHandler := taxonomy.NewHandler(a.Terms, val, logger, a.InvalidatePublic)
	caseStudiesHandler := casestudies.NewHandler(a.CaseStudies, a.Comments, val, logger)
	commentsHandler := comments.NewHandler(a.Comments, val, logger, a.InvalidatePublic)
	accountsHandler := accounts.NewHandler(a.Accounts, a.Tokens, val, logger, a.InvalidatePublic)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger, a.Metrics))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(30 * time.Second))
	r.Use(middleware.Session(a.Tokens, a.Accounts))

	writeLimiter := middleware.NewRateLimiter(cfg.RateLimitComments, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Repos.Ping(pingCtx); err != nil {
			logger.Warn("healthz: store unreachable", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusServiceUnavailable, "store unavailable", nil)
			return
		}
		transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticRoot))))
	if cfg.MediaBackend == config.MediaLocal {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaRoot))))
	}

	r.Route("/api/v1", func(api chi.Router) {
		// set before the site's HTML handler so chi does not hand it down here
		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			transport.WriteError(w, http.StatusNotFound, "not found", nil)
		})
		api.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			transport.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		})

		api.Get("/case-studies", caseStudiesHandler.PublicList)
		api.Get("/case-studies/{slug}", caseStudiesHandler.PublicGetBySlug)
		api.Get("/terms/{kind}", termsHandler.List)
		api.With(writeLimiter.Middleware).Post("/auth/token", accountsHandler.Token)

		api.Route("/admin", func(admin chi.Router) {
			admin.Group(func(mod chi.Router) {
				mod.Use(middleware.RequireRole(auth.RoleModerator, cfg.AdminAPIKey))
				mod.Get("/comments", commentsHandler.AdminList)
				mod.Post("/comments/approve", commentsHandler.AdminApprove)
				mod.Post("/comments/disapprove", commentsHandler.AdminDisapprove)
			})

			admin.Group(func(protected chi.Router) {
				protected.Use(middleware.RequireRole(auth.RoleAdmin, cfg.AdminAPIKey))
				protected.Get("/case-studies", caseStudiesHandler.AdminList)
				protected.Post("/case-studies", caseStudiesHandler.AdminCreate)
				protected.Put("/case-studies/{id}", caseStudiesHandler.AdminUpdate)
				protected.Delete("/case-studies/{id}", caseStudiesHandler.AdminDelete)

				protected.Post("/terms/{kind}", termsHandler.AdminCreate)
				protected.Put("/terms/{kind}/{id}", termsHandler.AdminUpdate)
				protected.Delete("/terms/{kind}/{id}", termsHandler.AdminDelete)

				protected.Get("/users", accountsHandler.AdminList)
				protected.Patch("/users/{id}/role", accountsHandler.AdminSetRole)
				protected.Delete("/users/{id}", accountsHandler.AdminDelete)
			})
		})
	})

	flashStore := flash.NewStore(a.Tokens.Secret, cfg.CookieSecure, logger)
	r.Group(func(pages chi.Router) {
		pages.Use(flashStore.Middleware)
		site.Routes(pages, writeLimiter.Middleware)
	})

	return r, nil
}
