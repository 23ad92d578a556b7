package http

import (
	"errors"
	"net/http"
	"time"

	"budgetapp/internal/core"
	applog "budgetapp/internal/log"
)

const (
	googleSuccessRedirect = "/"
	googleFailureRedirect = "/login.html"
	stateCookieTTL        = 10 * time.Minute
	stateCookiePath       = "/api/auth/google"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string    `json:"message"`
	User    core.User `json:"user"`
}

type meResponse struct {
	Authenticated      bool       `json:"authenticated"`
	User               *core.User `json:"user,omitempty"`
	RecurringProcessed int        `json:"recurring_processed,omitempty"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, session, err := s.svc.Auth.Signup(r.Context(), sanitizeInput(req.Name), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "User signed up",
		applog.FieldUserID, user.ID,
		applog.FieldOperation, applog.OpCreate)
	NewJSONResponse().
		Cookie(s.sessionCookie(session)).
		Body(authResponse{Message: "Signup successful", User: user}).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, session, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.catchUp(r, user.ID)

	NewJSONResponse().
		Cookie(s.sessionCookie(session)).
		Body(authResponse{Message: "Login successful", User: user}).
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.svc.Auth.Logout(r.Context(), c.Value); err != nil {
			writeError(w, r, err)
			return
		}
	}
	NewJSONResponse().
		Cookie(s.expiredCookie(sessionCookieName, "/")).
		Message("Logged out.").
		Write(w)
}

// handleMe reports the session state and brings the user's recurring rules
// up to date.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if errors.Is(err, core.ErrUnauthenticated) {
		writeJSON(w, meResponse{Authenticated: false})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	processed := s.catchUp(r, user.ID)
	writeJSON(w, meResponse{Authenticated: true, User: &user, RecurringProcessed: processed})
}

// catchUp materializes due recurring transactions. Failures are logged; the
// caller's request still succeeds.
func (s *Server) catchUp(r *http.Request, userID int64) int {
	n, err := s.svc.Recurring.Process(r.Context(), userID, s.today())
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogRecurringProcessed(r.Context(), userID, n, err)
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.opts.Google == nil || s.opts.States == nil {
		NotFoundError("Google sign-in is not configured.").Write(w)
		return
	}

	state, err := s.opts.States.Issue()
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   int(stateCookieTTL / time.Second),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.opts.Google.AuthCodeURL(state), http.StatusFound)
}

// handleGoogleCallback completes the code flow. The state query parameter
// must match the cookie set by handleGoogleLogin and carry a valid
// signature.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.opts.Google == nil || s.opts.States == nil {
		NotFoundError("Google sign-in is not configured.").Write(w)
		return
	}
	http.SetCookie(w, s.expiredCookie(stateCookieName, stateCookiePath))

	fail := func(reason string, err error) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Google sign-in failed",
			"reason", reason,
			applog.FieldError, err)
		http.Redirect(w, r, googleFailureRedirect, http.StatusFound)
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		fail("provider_error", errors.New(e))
		return
	}

	state := q.Get("state")
	c, err := r.Cookie(stateCookieName)
	if err != nil || state == "" || c.Value != state {
		fail("state_mismatch", err)
		return
	}
	if err := s.opts.States.Verify(state); err != nil {
		fail("state_invalid", err)
		return
	}

	code := q.Get("code")
	if code == "" {
		fail("missing_code", nil)
		return
	}
	profile, err := s.opts.Google.Exchange(r.Context(), code)
	if err != nil {
		fail("exchange", err)
		return
	}

	user, session, err := s.svc.Auth.LoginWithGoogle(r.Context(), profile)
	if err != nil {
		fail("login", err)
		return
	}
	s.catchUp(r, user.ID)

	http.SetCookie(w, s.sessionCookie(session))
	http.Redirect(w, r, googleSuccessRedirect, http.StatusFound)
}
