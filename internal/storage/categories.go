package storage

import (
	"context"
	"fmt"

	"budgetapp/internal/core"
)

const listCategories = `
SELECT key, name, type, icon, default_budget_cents
FROM categories
WHERE user_id = ?
ORDER BY CASE key WHEN 'uncategorized' THEN 1 ELSE 0 END, name`

func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Key, &c.Name, &c.Type, &c.Icon, &c.DefaultBudget.Cents); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const categoryExists = `SELECT EXISTS (SELECT 1 FROM categories WHERE user_id = ? AND key = ?)`

func (q *Queries) CategoryExists(ctx context.Context, userID int64, key string) (bool, error) {
	var exists bool
	if err := q.db.QueryRowContext(ctx, categoryExists, userID, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return exists, nil
}

const createCategory = `
INSERT INTO categories (user_id, key, name, type, icon, default_budget_cents)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, userID int64, c core.Category) error {
	_, err := q.db.ExecContext(ctx, createCategory, userID, c.Key, c.Name, c.Type, c.Icon, c.DefaultBudget.Cents)
	if isUniqueViolation(err) {
		return core.ErrDuplicateCategory
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

const reassignTransactions = `UPDATE transactions SET category = ? WHERE user_id = ? AND category = ?`

const reassignRecurringRules = `UPDATE recurring_rules SET category = ? WHERE user_id = ? AND category = ?`

const unlinkGoals = `UPDATE goals SET linked_category = '' WHERE user_id = ? AND linked_category = ?`

const deleteCategoryBudgets = `DELETE FROM budgets WHERE user_id = ? AND category = ?`

const deleteCategory = `DELETE FROM categories WHERE user_id = ? AND key = ?`

// ReassignCategory moves every transaction and rule of a category to target,
// drops its budgets and unlinks goals. It does not delete the category row.
func (q *Queries) ReassignCategory(ctx context.Context, userID int64, key, target string) error {
	if _, err := q.db.ExecContext(ctx, reassignTransactions, target, userID, key); err != nil {
		return fmt.Errorf("reassign transactions: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, reassignRecurringRules, target, userID, key); err != nil {
		return fmt.Errorf("reassign recurring rules: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, deleteCategoryBudgets, userID, key); err != nil {
		return fmt.Errorf("delete category budgets: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, unlinkGoals, userID, key); err != nil {
		return fmt.Errorf("unlink goals: %w", err)
	}
	return nil
}

func (q *Queries) DeleteCategory(ctx context.Context, userID int64, key string) error {
	res, err := q.db.ExecContext(ctx, deleteCategory, userID, key)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return affectedOrNotFound(res)
}
