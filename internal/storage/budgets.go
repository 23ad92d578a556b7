package storage

import (
	"context"
	"fmt"

	"budgetapp/internal/core"
)

const listBudgets = `
SELECT id, user_id, category, limit_cents, period
FROM budgets
WHERE user_id = ?
ORDER BY category`

func (q *Queries) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Category, &b.Limit.Cents, &b.Period); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

const upsertBudget = `
INSERT INTO budgets (user_id, category, limit_cents, period)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, category) DO UPDATE SET
    limit_cents = excluded.limit_cents,
    period = excluded.period,
    updated_at = strftime('%s', 'now')
RETURNING id, user_id, category, limit_cents, period`

// UpsertBudget creates the budget of a category or replaces its limit.
func (q *Queries) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	period := b.Period
	if period == "" {
		period = core.PeriodMonthly
	}
	var out core.Budget
	err := q.db.QueryRowContext(ctx, upsertBudget, b.OwnerID, b.Category, b.Limit.Cents, period).
		Scan(&out.ID, &out.OwnerID, &out.Category, &out.Limit.Cents, &out.Period)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return out, nil
}

const deleteBudget = `DELETE FROM budgets WHERE user_id = ? AND category = ?`

func (q *Queries) DeleteBudget(ctx context.Context, userID int64, category string) error {
	res, err := q.db.ExecContext(ctx, deleteBudget, userID, category)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return affectedOrNotFound(res)
}
