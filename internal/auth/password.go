// Package auth holds the credential primitives: password hashing, signed
// OAuth state tokens and the Google sign-in client.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"budgetapp/internal/core"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

// HashPassword returns the bcrypt hash of a password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", core.NewValidationError("password", "password is required")
	}
	if len(password) > maxPasswordBytes {
		return "", core.NewValidationError("password", "password too long (max 72 bytes)")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a password with a stored hash. An empty hash, as
// stored for accounts created through Google, never matches.
func CheckPassword(hash, password string) error {
	if hash == "" {
		return core.ErrInvalidCredentials
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return core.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}
