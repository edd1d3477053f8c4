package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/flash"
	"coreflow-cms/internal/httpx"

	"github.com/go-chi/chi/v5"
)

const maxFormBytes = 64 << 10

func (s *Site) Index(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	page, err := httpx.ParsePage(r.URL.Query())
	if err != nil {
		log.Warn("site index: invalid page", slog.String("page", r.URL.Query().Get("page")))
		s.NotFound(w, r)
		return
	}

	ctx, cancel := readContext(r)
	defer cancel()

	result, err := s.cases.ListPage(ctx, page)
	if err != nil {
		if errors.Is(err, casestudies.ErrPageNotFound) {
			log.Warn("site index: page not found", slog.Int("page", page))
			s.NotFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, "index.html", pageData{Title: "Case Studies", Page: result})
}

func (s *Site) Detail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := readContext(r)
	defer cancel()
	s.showDetail(w, r, ctx, chi.URLParam(r, "slug"), formState{})
}

// showDetail renders a case study with the comments the viewer may see.
func (s *Site) showDetail(w http.ResponseWriter, r *http.Request, ctx context.Context, slug string, form formState) {
	detail, err := s.cases.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, casestudies.ErrNotFound) {
			s.logWithRequest(r).Warn("site detail: not found", slog.String("slug", slug))
			s.NotFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}

	viewer := auth.PrincipalFromContext(r.Context())
	visible, err := s.comments.Visible(ctx, viewer, detail.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	count, err := s.comments.ApprovedCount(ctx, detail.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	views := make([]commentView, 0, len(visible))
	for _, c := range visible {
		views = append(views, commentView{
			ID:        c.ID,
			Author:    c.AuthorName,
			Content:   c.Content,
			Approved:  c.Approved,
			Mine:      viewer.Authenticated() && c.AuthorID == viewer.UserID,
			CreatedAt: c.CreatedAt,
		})
	}

	s.render(w, r, "detail.html", pageData{
		Title:        detail.Title,
		CaseStudy:    detail,
		Comments:     views,
		CommentCount: count,
		Form:         form,
	})
}

func (s *Site) SubmitComment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	slug := chi.URLParam(r, "slug")

	ctx, cancel := writeContext(r)
	defer cancel()

	detail, err := s.cases.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, casestudies.ErrNotFound) {
			s.NotFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}

	var form comments.Form
	if err := s.decodeForm(w, r, &form); err != nil {
		log.Warn("site comment submit: invalid form", slog.String("error", err.Error()))
	}
	state := formState{Values: map[string]string{"content": form.Content}}

	viewer := auth.PrincipalFromContext(r.Context())
	if !viewer.Authenticated() {
		log.Warn("site comment submit: anonymous", slog.String("slug", slug))
		flash.Warning(r.Context(), msgLoginToComment)
		s.showDetail(w, r, ctx, slug, state)
		return
	}
	if err := s.val.Struct(form); err != nil {
		log.Warn("site comment submit: validation error", slog.String("slug", slug))
		state.Errors = fieldErrors(s.val.Details(err))
		flash.Error(r.Context(), msgCommentInvalid)
		s.showDetail(w, r, ctx, slug, state)
		return
	}

	target := comments.Target{ID: detail.ID, Slug: detail.Slug, Title: detail.Title}
	created, err := s.comments.Submit(ctx, viewer, target, form.Content)
	if err != nil {
		if errors.Is(err, comments.ErrInvalidContent) {
			log.Warn("site comment submit: invalid content", slog.String("slug", slug))
			state.Errors = map[string]string{"content": "This field is required."}
			flash.Error(r.Context(), msgCommentInvalid)
			s.showDetail(w, r, ctx, slug, state)
			return
		}
		s.serverError(w, r, err)
		return
	}

	go s.notifyPending(log, created, target)

	log.Info("site comment submit: pending", slog.String("comment_id", created.ID), slog.String("slug", slug))
	flash.Success(r.Context(), msgCommentPending)
	s.redirect(w, r, detailURL(slug))
}

func (s *Site) EditComment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	slug := chi.URLParam(r, "slug")
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := writeContext(r)
	defer cancel()

	detail, err := s.cases.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, casestudies.ErrNotFound) {
			s.NotFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}

	var form comments.Form
	if err := s.decodeForm(w, r, &form); err != nil {
		log.Warn("site comment edit: invalid form", slog.String("error", err.Error()))
	}

	_, err = s.comments.Edit(ctx, auth.PrincipalFromContext(r.Context()), detail.ID, id, form.Content)
	switch {
	case err == nil:
		log.Info("site comment edit: ok", slog.String("comment_id", id))
		s.changed(ctx)
		flash.Success(r.Context(), msgEditOK)
	case errors.Is(err, comments.ErrNotFound):
		log.Warn("site comment edit: not found", slog.String("comment_id", id))
		s.NotFound(w, r)
		return
	case errors.Is(err, comments.ErrForbidden):
		log.Warn("site comment edit: forbidden", slog.String("comment_id", id))
		flash.Error(r.Context(), msgEditForbidden)
	case errors.Is(err, comments.ErrInvalidContent):
		log.Warn("site comment edit: invalid content", slog.String("comment_id", id))
		flash.Error(r.Context(), msgEditInvalid)
	default:
		s.serverError(w, r, err)
		return
	}
	s.redirect(w, r, detailURL(slug))
}

func (s *Site) DeleteComment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	slug := chi.URLParam(r, "slug")
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := writeContext(r)
	defer cancel()

	detail, err := s.cases.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, casestudies.ErrNotFound) {
			s.NotFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}

	err = s.comments.Delete(ctx, auth.PrincipalFromContext(r.Context()), detail.ID, id)
	switch {
	case err == nil:
		log.Info("site comment delete: ok", slog.String("comment_id", id))
		s.changed(ctx)
		flash.Success(r.Context(), msgDeleteOK)
	case errors.Is(err, comments.ErrNotFound):
		log.Warn("site comment delete: not found", slog.String("comment_id", id))
		s.NotFound(w, r)
		return
	case errors.Is(err, comments.ErrForbidden):
		log.Warn("site comment delete: forbidden", slog.String("comment_id", id))
		flash.Error(r.Context(), msgDeleteForbidden)
	default:
		s.serverError(w, r, err)
		return
	}
	s.redirect(w, r, detailURL(slug))
}

func (s *Site) notifyPending(log *slog.Logger, c comments.Comment, target comments.Target) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	if err := s.comments.NotifyPending(ctx, c, target); err != nil {
		log.Warn("site comment notify: send failed", slog.String("comment_id", c.ID), slog.String("error", err.Error()))
	}
}

func (s *Site) changed(ctx context.Context) {
	if s.commentsChanged != nil {
		s.commentsChanged(ctx)
	}
}

func (s *Site) decodeForm(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return err
	}
	return s.forms.Decode(dst, r.PostForm)
}

func detailURL(slug string) string {
	return "/" + slug + "/"
}
