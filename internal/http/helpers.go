package http

import (
	"context"
	"net/http"
	"time"

	"budgetapp/internal/core"
	applog "budgetapp/internal/log"
)

const (
	sessionCookieName = "budget_session"
	stateCookieName   = "oauth_state"
)

type contextKey string

const userContextKey contextKey = "user"

// userFrom returns the user stored by requireAuth.
func userFrom(ctx context.Context) core.User {
	u, _ := ctx.Value(userContextKey).(core.User)
	return u
}

// requireAuth resolves the session cookie and rejects anonymous requests
// with 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.currentUser(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		logger := applog.FromContext(ctx).With(applog.FieldUserID, user.ID)
		ctx = applog.NewContext(ctx, logger)
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) currentUser(r *http.Request) (core.User, error) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return core.User{}, core.ErrUnauthenticated
	}
	return s.svc.Auth.Authenticate(r.Context(), c.Value)
}

func (s *Server) sessionCookie(session core.Session) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(s.svc.Auth.SessionTTL() / time.Second),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// expiredCookie deletes the named cookie on the client.
func (s *Server) expiredCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
