package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"budgetapp/internal/core"
)

// PlanningService manages budgets, savings goals and settings.
type PlanningService struct {
	store     PlanningStore
	publisher Publisher
}

func NewPlanningService(store PlanningStore, publisher Publisher) *PlanningService {
	return &PlanningService{store: store, publisher: publisher}
}

func (s *PlanningService) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// SaveBudget sets the monthly limit of a category, replacing any previous one.
func (s *PlanningService) SaveBudget(ctx context.Context, userID int64, b core.Budget) (core.Budget, error) {
	b.ID = 0
	b.OwnerID = userID
	b.Category = strings.TrimSpace(b.Category)
	if b.Period == "" {
		b.Period = core.PeriodMonthly
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := requireCategory(ctx, s.store, userID, b.Category); err != nil {
		return core.Budget{}, err
	}

	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget saved",
		"user_id", userID,
		"category", saved.Category,
		"limit_cents", saved.Limit.Cents)
	return saved, nil
}

func (s *PlanningService) DeleteBudget(ctx context.Context, userID int64, category string) error {
	return s.store.DeleteBudget(ctx, userID, category)
}

func (s *PlanningService) ListGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// CreateGoal stores a savings goal. A starting amount at or above the target
// creates the goal already completed and clamped to the target.
func (s *PlanningService) CreateGoal(ctx context.Context, userID int64, g core.Goal) (core.Goal, error) {
	g.ID = 0
	g.OwnerID = userID
	g.Name = strings.TrimSpace(g.Name)
	g.LinkedCategory = strings.TrimSpace(g.LinkedCategory)
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if g.LinkedCategory != "" {
		if err := requireCategory(ctx, s.store, userID, g.LinkedCategory); err != nil {
			return core.Goal{}, err
		}
	}
	g.Completed = g.Current.Cents >= g.Target.Cents
	if g.Completed {
		g.Current = g.Target
	}

	created, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal created",
		"user_id", userID,
		"goal_id", created.ID,
		"linked_category", created.LinkedCategory)
	return created, nil
}

// Deposit credits a manual contribution to a goal.
func (s *PlanningService) Deposit(ctx context.Context, userID, goalID int64, amount core.Money) (GoalUpdate, error) {
	goal, err := s.store.GetGoal(ctx, userID, goalID)
	if err != nil {
		return GoalUpdate{}, err
	}
	update, err := Deposit(goal, amount)
	if err != nil {
		return GoalUpdate{}, err
	}
	if err := s.store.DepositToGoal(ctx, update.Goal); err != nil {
		return GoalUpdate{}, fmt.Errorf("save deposit: %w", err)
	}

	slog.InfoContext(ctx, "Goal deposit",
		"user_id", userID,
		"goal_id", goalID,
		"added_cents", update.Added.Cents,
		"completed", update.Goal.Completed)
	publishCompletedGoals(ctx, s.publisher, []GoalUpdate{update})
	return update, nil
}

func (s *PlanningService) DeleteGoal(ctx context.Context, userID, id int64) error {
	return s.store.DeleteGoal(ctx, userID, id)
}

func (s *PlanningService) Settings(ctx context.Context, userID int64) (core.Settings, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// SaveSettings replaces the user's settings. Fields left empty keep their
// default value.
func (s *PlanningService) SaveSettings(ctx context.Context, userID int64, in core.Settings) (core.Settings, error) {
	defaults := core.DefaultSettings(userID)
	in.OwnerID = userID
	if in.Theme == "" {
		in.Theme = defaults.Theme
	}
	if in.Currency == "" {
		in.Currency = defaults.Currency
	}
	in.Currency = strings.ToUpper(in.Currency)
	if in.Language == "" {
		in.Language = defaults.Language
	}
	if in.BudgetStartDay == 0 {
		in.BudgetStartDay = defaults.BudgetStartDay
	}
	if err := in.Validate(); err != nil {
		return core.Settings{}, err
	}
	if err := s.store.UpsertSettings(ctx, in); err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return in, nil
}
