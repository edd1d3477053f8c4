package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"coreflow-cms/internal/accounts"
	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/flash"
)

func (s *Site) SignupForm(w http.ResponseWriter, r *http.Request) {
	if auth.PrincipalFromContext(r.Context()).Authenticated() {
		s.redirect(w, r, safeNext(r.URL.Query().Get("next")))
		return
	}
	s.render(w, r, "signup.html", pageData{Title: "Sign up", Next: safeNext(r.URL.Query().Get("next"))})
}

func (s *Site) Signup(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	var req accounts.RegisterRequest
	if err := s.decodeForm(w, r, &req); err != nil {
		log.Warn("site signup: invalid form", slog.String("error", err.Error()))
	}
	next := safeNext(r.PostForm.Get("next"))
	state := formState{Values: map[string]string{"username": req.Username, "email": req.Email}}
	data := pageData{Title: "Sign up", Next: next}

	if err := s.val.Struct(req); err != nil {
		log.Warn("site signup: validation error")
		state.Errors = fieldErrors(s.val.Details(err))
		data.Form = state
		s.renderStatus(w, r, http.StatusBadRequest, "signup.html", data)
		return
	}

	ctx, cancel := writeContext(r)
	defer cancel()

	user, err := s.accounts.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUsernameTaken):
			state.Errors = map[string]string{"username": "A user with that username already exists."}
		case errors.Is(err, accounts.ErrInvalidUsername):
			state.Errors = map[string]string{"username": "Enter a valid username. Letters, digits and @/./+/-/_ only."}
		default:
			s.serverError(w, r, err)
			return
		}
		log.Warn("site signup: rejected", slog.String("error", err.Error()))
		data.Form = state
		s.renderStatus(w, r, http.StatusBadRequest, "signup.html", data)
		return
	}

	if err := s.startSession(w, user); err != nil {
		s.serverError(w, r, err)
		return
	}
	log.Info("site signup: ok", slog.String("user_id", user.ID))
	flash.Success(r.Context(), "Successfully signed in as "+user.Username+".")
	s.redirect(w, r, next)
}

func (s *Site) LoginForm(w http.ResponseWriter, r *http.Request) {
	if auth.PrincipalFromContext(r.Context()).Authenticated() {
		s.redirect(w, r, safeNext(r.URL.Query().Get("next")))
		return
	}
	s.render(w, r, "login.html", pageData{Title: "Sign in", Next: safeNext(r.URL.Query().Get("next"))})
}

func (s *Site) Login(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	var req accounts.LoginRequest
	if err := s.decodeForm(w, r, &req); err != nil {
		log.Warn("site login: invalid form", slog.String("error", err.Error()))
	}
	next := safeNext(r.PostForm.Get("next"))
	data := pageData{
		Title: "Sign in",
		Next:  next,
		Form:  formState{Values: map[string]string{"username": req.Username}},
	}

	if err := s.val.Struct(req); err != nil {
		log.Warn("site login: validation error")
		data.Form.Errors = fieldErrors(s.val.Details(err))
		s.renderStatus(w, r, http.StatusBadRequest, "login.html", data)
		return
	}

	ctx, cancel := readContext(r)
	defer cancel()

	user, err := s.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			log.Warn("site login: invalid credentials")
			flash.Error(r.Context(), "The username and/or password you specified are not correct.")
			s.renderStatus(w, r, http.StatusBadRequest, "login.html", data)
			return
		}
		s.serverError(w, r, err)
		return
	}

	if err := s.startSession(w, user); err != nil {
		s.serverError(w, r, err)
		return
	}
	log.Info("site login: ok", slog.String("user_id", user.ID))
	flash.Success(r.Context(), "Successfully signed in as "+user.Username+".")
	s.redirect(w, r, next)
}

func (s *Site) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	flash.Info(r.Context(), msgSignedOut)
	s.redirect(w, r, "/")
}

func (s *Site) startSession(w http.ResponseWriter, user accounts.User) error {
	token, err := s.tokens.NewSessionToken(*user.Principal())
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}
