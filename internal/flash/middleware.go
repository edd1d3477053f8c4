package flash

import (
	"crypto/sha256"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const CookieName = "coreflow_flash"

// Store persists notices between a redirect and the request that follows it.
type Store struct {
	cookies *sessions.CookieStore
	log     *slog.Logger
}

// NewStore signs the flash cookie with a key derived from secret.
func NewStore(secret []byte, secure bool, log *slog.Logger) *Store {
	key := sha256.Sum256(append([]byte("flash:"), secret...))
	cookies := sessions.NewCookieStore(key[:])
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cookies, log: log}
}

// Middleware loads notices carried over from the previous response and, when this response
// redirects with notices still pending, stores them for the next request.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := &list{}
		session, err := s.cookies.Get(r, CookieName)
		if err != nil {
			// tampered or stale cookie; start over with an empty session
			s.log.Debug("flash: discarding cookie", slog.String("error", err.Error()))
		}
		loaded := false
		if session != nil {
			for _, raw := range session.Flashes() {
				if n, ok := raw.(Notice); ok {
					l.notices = append(l.notices, n)
					loaded = true
				}
			}
		}

		r = r.WithContext(withList(r.Context(), l))
		fw := &writer{ResponseWriter: w, store: s, session: session, request: r, loaded: loaded}
		next.ServeHTTP(fw, r)
	})
}

type writer struct {
	http.ResponseWriter
	store   *Store
	session *sessions.Session
	request *http.Request
	loaded  bool
	written bool
}

func (w *writer) WriteHeader(status int) {
	if !w.written {
		w.written = true
		w.persist(status)
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *writer) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *writer) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *writer) persist(status int) {
	if w.session == nil {
		return
	}
	pending := Pop(w.request.Context())
	redirect := status >= 300 && status < 400

	switch {
	case redirect && len(pending) > 0:
		for _, n := range pending {
			w.session.AddFlash(n)
		}
	case w.loaded:
		// shown on this response; drop the cookie
		w.session.Options.MaxAge = -1
	default:
		return
	}
	if err := w.session.Save(w.request, w.ResponseWriter); err != nil {
		w.store.log.Warn("flash: save failed", slog.String("error", err.Error()))
	}
}
