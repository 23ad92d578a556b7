package storage

import (
	"context"
	"fmt"
	"time"

	"budgetapp/internal/core"
)

const createSession = `INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`

func (q *Queries) CreateSession(ctx context.Context, s core.Session) error {
	if _, err := q.db.ExecContext(ctx, createSession, s.Token, s.UserID, s.ExpiresAt.Unix()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

const getSession = `SELECT token, user_id, expires_at FROM sessions WHERE token = ?`

func (q *Queries) GetSession(ctx context.Context, token string) (core.Session, error) {
	var (
		s       core.Session
		expires int64
	)
	if err := q.db.QueryRowContext(ctx, getSession, token).Scan(&s.Token, &s.UserID, &expires); err != nil {
		return core.Session{}, notFound(err)
	}
	s.ExpiresAt = time.Unix(expires, 0).UTC()
	return s, nil
}

const deleteSession = `DELETE FROM sessions WHERE token = ?`

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	if _, err := q.db.ExecContext(ctx, deleteSession, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

const deleteExpiredSessions = `DELETE FROM sessions WHERE expires_at <= ?`

// DeleteExpiredSessions removes sessions that expired at or before now.
func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSessions, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
