package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/flash"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index.html",
	"detail.html",
	"signup.html",
	"login.html",
	"404.html",
	"500.html",
}

type pages struct {
	byName map[string]*template.Template
}

var funcs = template.FuncMap{
	// description is rich text written by administrators
	"trusted": func(s string) template.HTML { return template.HTML(s) },
	"date":    func(t time.Time) string { return t.Format("January 2, 2006, 3:04 PM") },
}

func loadPages() (*pages, error) {
	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// formState carries a submitted form back to the page with its field errors.
type formState struct {
	Values map[string]string
	Errors map[string]string
}

func (f formState) Value(key string) string { return f.Values[key] }
func (f formState) Error(key string) string { return f.Errors[key] }

type commentView struct {
	ID        string
	Author    string
	Content   string
	Approved  bool
	Mine      bool
	CreatedAt time.Time
}

type pageData struct {
	Title     string
	Viewer    *auth.Principal
	Notices   []flash.Notice
	StaticURL string

	Page         casestudies.Page
	CaseStudy    casestudies.Detail
	Comments     []commentView
	CommentCount int64
	Form         formState
	Next         string
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

func (s *Site) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := s.pages.byName[name]
	if !ok {
		s.logWithRequest(r).Error("site render: unknown template", slog.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	data.Viewer = auth.PrincipalFromContext(r.Context())
	data.StaticURL = s.staticURL
	data.Notices = flash.Pop(r.Context())

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		s.logWithRequest(r).Error("site render: template error", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Site) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logWithRequest(r).Error("site: internal error", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	s.renderStatus(w, r, http.StatusInternalServerError, "500.html", pageData{Title: "Server error"})
}

func (s *Site) redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

var fieldMessages = map[string]string{
	"required": "This field is required.",
	"notblank": "This field is required.",
	"max":      "Ensure this value is not too long.",
	"min":      "Ensure this value is long enough.",
	"email":    "Enter a valid email address.",
	"eqfield":  "The two password fields didn't match.",
}

// fieldErrors turns field -> failed tag into messages for the form.
func fieldErrors(details map[string]string) map[string]string {
	out := make(map[string]string, len(details))
	for field, tag := range details {
		msg, ok := fieldMessages[tag]
		if !ok {
			msg = "Enter a valid value."
		}
		out[field] = msg
	}
	return out
}
