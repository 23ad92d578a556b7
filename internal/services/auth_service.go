package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetapp/internal/auth"
	"budgetapp/internal/cache"
	"budgetapp/internal/core"
)

// AuthService handles accounts and sessions. Sessions live in the database
// and are cached in memory by token.
type AuthService struct {
	store    AuthStore
	sessions cache.Cache[core.Session]
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthService(store AuthStore, sessions cache.Cache[core.Session], ttl time.Duration) *AuthService {
	return &AuthService{store: store, sessions: sessions, ttl: ttl, now: time.Now}
}

// Signup creates a password account and opens a session for it.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (core.User, core.Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return core.User{}, core.Session{}, core.NewValidationError("", "name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return core.User{}, core.Session{}, core.NewValidationError("email", "invalid email address")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, core.Session{}, err
	}

	user, err := s.store.RegisterUser(ctx, core.User{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		return core.User{}, core.Session{}, err
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	return user, session, nil
}

// Login checks a password and opens a session. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, core.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return core.User{}, core.Session{}, core.NewValidationError("", "email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, core.Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		slog.WarnContext(ctx, "Login failed", "user_id", user.ID)
		return core.User{}, core.Session{}, err
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return user, session, nil
}

// LoginWithGoogle signs in the owner of a Google profile. An existing account
// with the same email is linked to the Google identity; otherwise a new
// account without password is created.
func (s *AuthService) LoginWithGoogle(ctx context.Context, profile auth.GoogleProfile) (core.User, core.Session, error) {
	user, err := s.store.GetUserByEmail(ctx, profile.Email)
	switch {
	case errors.Is(err, core.ErrNotFound):
		user, err = s.store.RegisterUser(ctx, core.User{
			Email:          profile.Email,
			Name:           profile.Name,
			SocialProvider: auth.ProviderGoogle,
			SocialID:       profile.ID,
		})
		if err != nil {
			return core.User{}, core.Session{}, err
		}
	case err != nil:
		return core.User{}, core.Session{}, fmt.Errorf("find user: %w", err)
	case user.SocialID == "":
		if err := s.store.LinkSocialAccount(ctx, user.ID, auth.ProviderGoogle, profile.ID); err != nil {
			return core.User{}, core.Session{}, err
		}
		user.SocialProvider = auth.ProviderGoogle
		user.SocialID = profile.ID
		slog.InfoContext(ctx, "Google account linked", "user_id", user.ID)
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	return user, session, nil
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (core.User, error) {
	if token == "" {
		return core.User{}, core.ErrUnauthenticated
	}

	session, ok := s.sessions.Get(token)
	if !ok {
		var err error
		session, err = s.store.GetSession(ctx, token)
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.ErrUnauthenticated
		}
		if err != nil {
			return core.User{}, fmt.Errorf("load session: %w", err)
		}
	}

	if session.Expired(s.now()) {
		s.sessions.Delete(token)
		if err := s.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Failed to delete expired session", "error", err)
		}
		return core.User{}, core.ErrUnauthenticated
	}
	if !ok {
		s.sessions.SetUntil(token, session, session.ExpiresAt)
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if errors.Is(err, core.ErrNotFound) {
		s.sessions.Delete(token)
		return core.User{}, core.ErrUnauthenticated
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Logout ends a session. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	s.sessions.Delete(token)
	if err := s.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SessionTTL is how long new sessions stay valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

func (s *AuthService) openSession(ctx context.Context, userID int64) (core.Session, error) {
	session := core.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl).UTC().Truncate(time.Second),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.sessions.SetUntil(session.Token, session, session.ExpiresAt)
	return session, nil
}
