package storage

import (
	"context"
	"fmt"

	"budgetapp/internal/core"
)

const goalColumns = `id, user_id, name, target_cents, current_cents, deadline, linked_category, completed, icon, color`

func scanGoal(row rowScanner) (core.Goal, error) {
	var (
		g        core.Goal
		deadline string
	)
	if err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Target.Cents, &g.Current.Cents, &deadline, &g.LinkedCategory, &g.Completed, &g.Icon, &g.Color); err != nil {
		return core.Goal{}, err
	}
	d, err := stringToDate(deadline)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal %d: %w", g.ID, err)
	}
	g.Deadline = d
	return g, nil
}

const createGoal = `
INSERT INTO goals (user_id, name, target_cents, current_cents, deadline, linked_category, completed, icon, color)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + goalColumns

func (q *Queries) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	created, err := scanGoal(q.db.QueryRowContext(ctx, createGoal,
		g.OwnerID, g.Name, g.Target.Cents, g.Current.Cents, dateToString(g.Deadline), g.LinkedCategory, boolToInt(g.Completed), g.Icon, g.Color))
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return created, nil
}

const listGoals = `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ? ORDER BY id`

func (q *Queries) ListGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

const getGoal = `SELECT ` + goalColumns + ` FROM goals WHERE id = ? AND user_id = ?`

func (q *Queries) GetGoal(ctx context.Context, userID, id int64) (core.Goal, error) {
	g, err := scanGoal(q.db.QueryRowContext(ctx, getGoal, id, userID))
	if err != nil {
		return core.Goal{}, notFound(err)
	}
	return g, nil
}

const updateGoalProgress = `
UPDATE goals SET current_cents = ?, completed = ?
WHERE id = ? AND user_id = ?`

// UpdateGoalProgress stores the current amount and completion flag of a goal.
func (q *Queries) UpdateGoalProgress(ctx context.Context, g core.Goal) error {
	res, err := q.db.ExecContext(ctx, updateGoalProgress, g.Current.Cents, boolToInt(g.Completed), g.ID, g.OwnerID)
	if err != nil {
		return fmt.Errorf("update goal progress: %w", err)
	}
	return affectedOrNotFound(res)
}

const deleteGoal = `DELETE FROM goals WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteGoal(ctx context.Context, userID, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteGoal, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return affectedOrNotFound(res)
}
