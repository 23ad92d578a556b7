package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"budgetapp/internal/core"
)

const getSettings = `
SELECT user_id, theme, currency, language, budget_start_day, weekly_summary, low_balance
FROM settings
WHERE user_id = ?`

// GetSettings returns the stored settings, or the defaults when the user
// never saved any.
func (q *Queries) GetSettings(ctx context.Context, userID int64) (core.Settings, error) {
	var s core.Settings
	err := q.db.QueryRowContext(ctx, getSettings, userID).Scan(
		&s.OwnerID, &s.Theme, &s.Currency, &s.Language, &s.BudgetStartDay,
		&s.Notifications.WeeklySummary, &s.Notifications.LowBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(userID), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

const upsertSettings = `
INSERT INTO settings (user_id, theme, currency, language, budget_start_day, weekly_summary, low_balance)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    theme = excluded.theme,
    currency = excluded.currency,
    language = excluded.language,
    budget_start_day = excluded.budget_start_day,
    weekly_summary = excluded.weekly_summary,
    low_balance = excluded.low_balance,
    updated_at = strftime('%s', 'now')`

func (q *Queries) UpsertSettings(ctx context.Context, s core.Settings) error {
	_, err := q.db.ExecContext(ctx, upsertSettings,
		s.OwnerID, s.Theme, s.Currency, s.Language, s.BudgetStartDay,
		boolToInt(s.Notifications.WeeklySummary), boolToInt(s.Notifications.LowBalance))
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
