// Package web serves the public HTML site: the case study catalogue, the comment workflow
// and the account pages.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"coreflow-cms/internal/accounts"
	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/middleware"
	"coreflow-cms/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
)

// Notice texts shown by the comment workflow.
const (
	msgLoginToComment  = "You must be logged in to comment."
	msgCommentPending  = "Comment submitted and awaiting approval"
	msgCommentInvalid  = "Error adding comment!"
	msgEditForbidden   = "You can only edit your own comments!"
	msgEditInvalid     = "Error updating comment!"
	msgEditOK          = "Comment updated!"
	msgDeleteForbidden = "You can only delete your own comments!"
	msgDeleteOK        = "Comment deleted!"
	msgSignedOut       = "You have signed out."
)

type Site struct {
	cases    *casestudies.Service
	comments *comments.Service
	accounts *accounts.Service
	tokens   *auth.Manager
	val      *validation.Validator
	log      *slog.Logger
	forms    *schema.Decoder
	pages    *pages

	staticURL    string
	cookieSecure bool
	// commentsChanged runs after a change that can alter public comment counts.
	commentsChanged func(ctx context.Context)
}

type Options struct {
	CaseStudies  *casestudies.Service
	Comments     *comments.Service
	Accounts     *accounts.Service
	Tokens       *auth.Manager
	Validator    *validation.Validator
	Log          *slog.Logger
	StaticURL    string
	CookieSecure bool
	// CommentsChanged is called after edits and deletes made through the site.
	CommentsChanged func(ctx context.Context)
}

func New(opts Options) (*Site, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	forms := schema.NewDecoder()
	forms.SetAliasTag("form")
	forms.IgnoreUnknownKeys(true)

	return &Site{
		cases:           opts.CaseStudies,
		comments:        opts.Comments,
		accounts:        opts.Accounts,
		tokens:          opts.Tokens,
		val:             opts.Validator,
		log:             opts.Log,
		forms:           forms,
		pages:           p,
		staticURL:       opts.StaticURL,
		cookieSecure:    opts.CookieSecure,
		commentsChanged: opts.CommentsChanged,
	}, nil
}

// Routes registers the site pages on r. writeLimit guards the form posts.
func (s *Site) Routes(r chi.Router, writeLimit func(http.Handler) http.Handler) {
	r.Get("/", s.Index)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/signup/", s.SignupForm)
		r.With(writeLimit).Post("/signup/", s.Signup)
		r.Get("/login/", s.LoginForm)
		r.With(writeLimit).Post("/login/", s.Login)
		r.Post("/logout/", s.Logout)
	})

	r.Get("/{slug}/", s.Detail)
	r.Group(func(r chi.Router) {
		r.Use(writeLimit)
		r.Post("/{slug}/", s.SubmitComment)
		r.Post("/{slug}/edit_comment/{id}/", s.EditComment)
		r.Post("/{slug}/delete_comment/{id}/", s.DeleteComment)
	})

	r.NotFound(s.NotFound)
}

func (s *Site) NotFound(w http.ResponseWriter, r *http.Request) {
	s.renderStatus(w, r, http.StatusNotFound, "404.html", pageData{Title: "Page not found"})
}

func (s *Site) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.log.With(slog.String("request_id", id))
	}
	return s.log
}

func readContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func writeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 8*time.Second)
}
