// Package app assembles the stores and services shared by the server and the manage CLI.
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"os"
	"strings"

	"coreflow-cms/internal/accounts"
	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/cache"
	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/config"
	"coreflow-cms/internal/db"
	"coreflow-cms/internal/media"
	"coreflow-cms/internal/metrics"
	"coreflow-cms/internal/notifications"
	"coreflow-cms/internal/taxonomy"
)

type App struct {
	Cfg     *config.Config
	Log     *slog.Logger
	Metrics *metrics.Metrics
	Repos   *db.Repositories
	Cache   cache.Cache
	Tokens  *auth.Manager

	Terms       *taxonomy.Service
	CaseStudies *casestudies.Service
	Comments    *comments.Service
	Accounts    *accounts.Service
	Images      media.Resolver

	closers []func(ctx context.Context) error
}

// NewLogger returns the JSON logger at the configured level.
func NewLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}

// New connects the configured store and cache and builds every service on top of them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	m, err := metrics.New()
	if err != nil {
		return nil, err
	}

	repos, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("store connected", slog.String("driver", cfg.StoreDriver))

	a := &App{Cfg: cfg, Log: logger, Metrics: m, Repos: repos}
	a.closers = append(a.closers, repos.Close)

	if err := a.openCache(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			_ = a.Close(context.Background())
			return nil, err
		}
		logger.Warn("JWT_SECRET not set; sessions will not survive a restart")
	}
	a.Tokens = &auth.Manager{Secret: secret, SessionTTL: cfg.SessionTTL(), Issuer: "coreflow-cms"}

	images, err := media.NewResolver(cfg)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	a.Images = images

	var notifier comments.Notifier
	if mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox, cfg.ModeratorEmails, cfg.SiteURL); mailer != nil {
		notifier = mailer
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Int("moderators", len(cfg.ModeratorEmails)))
	} else {
		logger.Info("brevo mailer disabled")
	}

	a.Terms = taxonomy.NewService(repos.Terms, cfg.Timezone)
	a.Comments = comments.NewService(repos.Comments, cfg.Timezone, notifier, m)
	a.CaseStudies = casestudies.NewService(repos.CaseStudies, casestudies.Options{
		Terms:    a.Terms,
		Images:   images,
		Comments: a.Comments,
		Cache:    a.Cache,
		CacheTTL: cfg.CacheTTL(),
		Location: cfg.Timezone,
		Log:      logger,
	})
	a.Terms.SetDependents(a.CaseStudies)
	a.Accounts = accounts.NewService(repos.Users, cfg.Timezone)
	return a, nil
}

func (a *App) openCache(ctx context.Context) error {
	cfg := a.Cfg
	if cfg.RedisURL == "" && cfg.RedisAddr == "" {
		a.Cache = cache.NewMemory(cfg.CacheTTL())
		a.Log.Info("in-process cache enabled")
		return nil
	}

	var redisCache *cache.RedisCache
	if cfg.RedisURL != "" {
		var err error
		redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			return err
		}
	} else {
		redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	if err := redisCache.Ping(ctx); err != nil {
		_ = redisCache.Close()
		return err
	}
	a.Log.Info("redis connected")
	a.Cache = redisCache
	a.closers = append(a.closers, func(context.Context) error { return redisCache.Close() })
	return nil
}

// Close releases the cache and store connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SharedCache reports whether cached pages live outside this process, so an invalidation
// here reaches every server.
func (a *App) SharedCache() bool {
	_, ok := a.Cache.(*cache.RedisCache)
	return ok
}

// InvalidatePublic drops cached public pages after writes that change what they show.
func (a *App) InvalidatePublic(ctx context.Context) {
	a.CaseStudies.Invalidate(ctx)
}
