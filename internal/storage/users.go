package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budgetapp/internal/core"
)

const userColumns = `id, email, name, password_hash, social_provider, social_id, created_at`

func scanUser(row rowScanner) (core.User, error) {
	var (
		u       core.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.SocialProvider, &u.SocialID, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

const createUser = `
INSERT INTO users (email, name, password_hash, social_provider, social_id)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		strings.ToLower(strings.TrimSpace(u.Email)), u.Name, u.PasswordHash, u.SocialProvider, u.SocialID)
	created, err := scanUser(row)
	if isUniqueViolation(err) {
		return core.User{}, core.ErrDuplicateEmail
	}
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
	if err != nil {
		return core.User{}, notFound(err)
	}
	return u, nil
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, getUserByEmail, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return core.User{}, notFound(err)
	}
	return u, nil
}

const linkSocialAccount = `
UPDATE users SET social_provider = ?, social_id = ?
WHERE id = ? AND social_id = ''`

// LinkSocialAccount attaches a provider identity to a user that has none yet.
func (q *Queries) LinkSocialAccount(ctx context.Context, userID int64, provider, socialID string) error {
	if _, err := q.db.ExecContext(ctx, linkSocialAccount, provider, socialID, userID); err != nil {
		return fmt.Errorf("link social account: %w", err)
	}
	return nil
}
