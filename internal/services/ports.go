package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetapp/internal/amqp"
	"budgetapp/internal/core"
	"budgetapp/internal/storage"
)

type categoryChecker interface {
	CategoryExists(ctx context.Context, userID int64, key string) (bool, error)
}

// The store interfaces below list the storage.SQLiteRepository methods each
// service needs, so services can be tested against in-memory fakes.

type TransactionStore interface {
	CategoryExists(ctx context.Context, userID int64, key string) (bool, error)
	ListGoals(ctx context.Context, userID int64) ([]core.Goal, error)
	ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
	RecordTransaction(ctx context.Context, tx core.Transaction, goals []core.Goal) (core.Transaction, error)
	CreateRecurringTransaction(ctx context.Context, rule core.RecurringRule, first core.Transaction, goals []core.Goal) (core.RecurringRule, core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
}

type RecurringStore interface {
	CategoryExists(ctx context.Context, userID int64, key string) (bool, error)
	ListGoals(ctx context.Context, userID int64) ([]core.Goal, error)
	ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
	ListRecurringRules(ctx context.Context, userID int64) ([]core.RecurringRule, error)
	ListDueRecurringRules(ctx context.Context, userID int64, today core.Date) ([]core.RecurringRule, error)
	CreateRecurringRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error)
	DeleteRecurringRule(ctx context.Context, userID, id int64) error
	SaveRecurringRun(ctx context.Context, run storage.RecurringRun) ([]core.Transaction, error)
}

type ReportStore interface {
	ListTransactionsBetween(ctx context.Context, userID int64, start, end core.Date) ([]core.Transaction, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	ListRecurringRules(ctx context.Context, userID int64) ([]core.RecurringRule, error)
	LatestTransactionDate(ctx context.Context, userID int64) (core.Date, error)
}

type AuthStore interface {
	RegisterUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	LinkSocialAccount(ctx context.Context, userID int64, provider, socialID string) error
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, token string) (core.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type CategoryStore interface {
	ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	CreateCategory(ctx context.Context, userID int64, c core.Category) error
	RemoveCategory(ctx context.Context, userID int64, key string) error
}

type PlanningStore interface {
	CategoryExists(ctx context.Context, userID int64, key string) (bool, error)
	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	DeleteBudget(ctx context.Context, userID int64, category string) error
	ListGoals(ctx context.Context, userID int64) ([]core.Goal, error)
	GetGoal(ctx context.Context, userID, id int64) (core.Goal, error)
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	DepositToGoal(ctx context.Context, g core.Goal) error
	DeleteGoal(ctx context.Context, userID, id int64) error
	GetSettings(ctx context.Context, userID int64) (core.Settings, error)
	UpsertSettings(ctx context.Context, s core.Settings) error
}

// Publisher delivers change notifications, typically *amqp.Client.
type Publisher interface {
	Publish(ctx context.Context, evt *amqp.Event) error
}

// publish sends evt when a publisher is configured. Delivery failures are
// logged and never fail the caller: the change is already committed.
func publish(ctx context.Context, p Publisher, evt *amqp.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"type", evt.Type,
			"user_id", evt.UserID,
			"error", err)
	}
}

func publishCompletedGoals(ctx context.Context, p Publisher, updates []GoalUpdate) {
	for _, u := range updates {
		if u.JustCompleted {
			publish(ctx, p, amqp.NewEvent(amqp.EventGoalCompleted, u.Goal.OwnerID, u.Goal.ID))
		}
	}
}

func goalsOf(updates []GoalUpdate) []core.Goal {
	goals := make([]core.Goal, 0, len(updates))
	for _, u := range updates {
		goals = append(goals, u.Goal)
	}
	return goals
}

// requireCategory fails with ErrUnknownCategory when the user has no such
// category.
func requireCategory(ctx context.Context, store categoryChecker, userID int64, key string) error {
	ok, err := store.CategoryExists(ctx, userID, key)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return core.ErrUnknownCategory
	}
	return nil
}
