package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"coreflow-cms/internal/auth"
	"coreflow-cms/internal/transport"
)

// Accounts reloads the account a session token names.
type Accounts interface {
	PrincipalFor(ctx context.Context, userID string) (*auth.Principal, error)
}

// Session resolves the request principal from the session cookie or a bearer token.
// The token only names the user: identity and role come from the stored account, so a
// deleted or demoted user loses access immediately. Requests without valid credentials,
// or whose account cannot be loaded, continue anonymously.
func Session(manager *auth.Manager, accounts Accounts) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				next.ServeHTTP(w, r)
				return
			}
			token := bearerToken(r)
			if token == "" {
				if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
					token = cookie.Value
				}
			}
			if token != "" {
				if claimed, err := manager.PrincipalFromToken(token); err == nil {
					if p, err := accounts.PrincipalFor(r.Context(), claimed.UserID); err == nil && p.Authenticated() {
						r = r.WithContext(auth.WithPrincipal(r.Context(), p))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole admits callers holding role, or presenting the operator API key.
func RequireRole(role, adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" {
				if key := r.Header.Get("X-Admin-Key"); key != "" {
					if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
						transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
						return
					}
					ctx := auth.WithPrincipal(r.Context(), auth.Operator())
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			p := auth.PrincipalFromContext(r.Context())
			if !p.Authenticated() {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !p.Can(role) {
				transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
