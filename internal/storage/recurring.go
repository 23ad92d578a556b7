package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budgetapp/internal/core"
)

const recurringColumns = `id, user_id, type, amount_cents, category, notes, frequency, next_due, active`

func scanRecurringRule(row rowScanner) (core.RecurringRule, error) {
	var (
		r       core.RecurringRule
		nextDue string
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Type, &r.Amount.Cents, &r.Category, &r.Notes, &r.Frequency, &nextDue, &r.Active); err != nil {
		return core.RecurringRule{}, err
	}
	d, err := stringToDate(nextDue)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("recurring rule %d: %w", r.ID, err)
	}
	r.NextDue = d
	return r, nil
}

func scanRecurringRules(rows *sql.Rows) ([]core.RecurringRule, error) {
	defer rows.Close()
	var rules []core.RecurringRule
	for rows.Next() {
		r, err := scanRecurringRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

const createRecurringRule = `
INSERT INTO recurring_rules (user_id, type, amount_cents, category, notes, frequency, next_due, active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + recurringColumns

func (q *Queries) CreateRecurringRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	created, err := scanRecurringRule(q.db.QueryRowContext(ctx, createRecurringRule,
		r.OwnerID, r.Type, r.Amount.Cents, r.Category, r.Notes, r.Frequency, dateToString(r.NextDue), boolToInt(r.Active)))
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("insert recurring rule: %w", err)
	}
	return created, nil
}

const listRecurringRules = `
SELECT ` + recurringColumns + `
FROM recurring_rules
WHERE user_id = ?
ORDER BY next_due, id`

func (q *Queries) ListRecurringRules(ctx context.Context, userID int64) ([]core.RecurringRule, error) {
	rows, err := q.db.QueryContext(ctx, listRecurringRules, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	return scanRecurringRules(rows)
}

const listDueRecurringRules = `
SELECT ` + recurringColumns + `
FROM recurring_rules
WHERE user_id = ? AND active = 1 AND next_due <= ?
ORDER BY next_due, id`

// ListDueRecurringRules returns the active rules with a due date on or before today.
func (q *Queries) ListDueRecurringRules(ctx context.Context, userID int64, today core.Date) ([]core.RecurringRule, error) {
	rows, err := q.db.QueryContext(ctx, listDueRecurringRules, userID, dateToString(today))
	if err != nil {
		return nil, fmt.Errorf("list due recurring rules: %w", err)
	}
	return scanRecurringRules(rows)
}

const updateRecurringNextDue = `UPDATE recurring_rules SET next_due = ? WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateRecurringNextDue(ctx context.Context, userID, id int64, nextDue core.Date) error {
	res, err := q.db.ExecContext(ctx, updateRecurringNextDue, dateToString(nextDue), id, userID)
	if err != nil {
		return fmt.Errorf("update next due: %w", err)
	}
	return affectedOrNotFound(res)
}

const deleteRecurringRule = `DELETE FROM recurring_rules WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteRecurringRule(ctx context.Context, userID, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteRecurringRule, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	return affectedOrNotFound(res)
}
