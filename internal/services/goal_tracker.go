package services

import (
	"budgetapp/internal/core"
)

// GoalUpdate records a goal changed by a transaction or deposit.
type GoalUpdate struct {
	Goal core.Goal
	// Added is the amount actually credited after clamping.
	Added core.Money
	// JustCompleted is true when this update reached the target.
	JustCompleted bool
}

// ApplyAutoTrack credits tx to every open goal linked to its category.
// Completed goals are left alone. Only changed goals are returned; the
// input slice is not modified.
func ApplyAutoTrack(goals []core.Goal, tx core.Transaction) []GoalUpdate {
	if tx.Category == "" || tx.Amount.IsZero() {
		return nil
	}

	var updates []GoalUpdate
	for _, g := range goals {
		if g.Completed || g.LinkedCategory == "" || g.LinkedCategory != tx.Category {
			continue
		}
		if u, ok := credit(g, tx.Amount.Abs()); ok {
			updates = append(updates, u)
		}
	}
	return updates
}

// Deposit credits a manual contribution to a goal.
func Deposit(goal core.Goal, amount core.Money) (GoalUpdate, error) {
	if err := amount.Validate(); err != nil {
		return GoalUpdate{}, err
	}
	if goal.Completed {
		return GoalUpdate{}, core.ErrGoalCompleted
	}
	u, _ := credit(goal, amount)
	return u, nil
}

func credit(g core.Goal, amount core.Money) (GoalUpdate, bool) {
	before := g.Current
	g.Current = g.Current.Add(amount)
	if g.Current.Cents >= g.Target.Cents {
		g.Current = g.Target
		g.Completed = true
	}
	added := g.Current.Sub(before)
	if added.IsZero() && !g.Completed {
		return GoalUpdate{}, false
	}
	return GoalUpdate{Goal: g, Added: added, JustCompleted: g.Completed}, true
}
