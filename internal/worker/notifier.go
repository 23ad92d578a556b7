package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgetapp/internal/amqp"
	"budgetapp/internal/core"
	"budgetapp/internal/services"
)

// Alert kinds produced by the Notifier.
const (
	AlertOverBudget    = "over_budget"
	AlertGoalCompleted = "goal_completed"
	AlertRecurring     = "recurring_processed"
)

// Alert is a user-facing notification derived from a change event.
type Alert struct {
	Kind    string
	UserID  int64
	Message string
}

// ReportSource builds period reports, typically *services.ReportService.
type ReportSource interface {
	Summary(ctx context.Context, userID int64, start, end, today core.Date) (services.Report, error)
}

// GoalSource reads single goals, typically *storage.SQLiteRepository.
type GoalSource interface {
	GetGoal(ctx context.Context, userID, id int64) (core.Goal, error)
}

// Notifier turns budget change events into alerts.
type Notifier struct {
	reports ReportSource
	goals   GoalSource
	sink    func(context.Context, Alert)
	now     func() time.Time
}

// NewNotifier creates a Notifier. A nil sink logs alerts.
func NewNotifier(reports ReportSource, goals GoalSource, sink func(context.Context, Alert)) *Notifier {
	if sink == nil {
		sink = logAlert
	}
	return &Notifier{reports: reports, goals: goals, sink: sink, now: time.Now}
}

func logAlert(ctx context.Context, a Alert) {
	slog.InfoContext(ctx, "Alert", "kind", a.Kind, "user_id", a.UserID, "message", a.Message)
}

// HandleEvent processes one event. Returning an error requeues it, so only
// transient failures are reported; unknown event types are acknowledged.
func (n *Notifier) HandleEvent(ctx context.Context, evt *amqp.Event) error {
	slog.DebugContext(ctx, "Processing event",
		"type", evt.Type,
		"user_id", evt.UserID,
		"entity_id", evt.EntityID)

	switch evt.Type {
	case amqp.EventTransactionCreated:
		return n.checkBudgets(ctx, evt.UserID)
	case amqp.EventGoalCompleted:
		return n.goalCompleted(ctx, evt.UserID, evt.EntityID)
	case amqp.EventRecurringProcessed:
		if evt.Count > 0 {
			n.sink(ctx, Alert{
				Kind:    AlertRecurring,
				UserID:  evt.UserID,
				Message: fmt.Sprintf("%d recurring transaction(s) were added.", evt.Count),
			})
		}
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "type", evt.Type)
		return nil
	}
}

// checkBudgets alerts on every category over its limit in the current month.
func (n *Notifier) checkBudgets(ctx context.Context, userID int64) error {
	today := core.DateOf(n.now())
	start, end := services.MonthRange(today.Year(), time.Month(today.Month()))

	report, err := n.reports.Summary(ctx, userID, start, end, today)
	if err != nil {
		return fmt.Errorf("build month report: %w", err)
	}
	for _, row := range report.Budgets.Rows {
		if row.State != services.BudgetOver {
			continue
		}
		name := report.CategoryNames[row.Category]
		if name == "" {
			name = row.Category
		}
		n.sink(ctx, Alert{
			Kind:    AlertOverBudget,
			UserID:  userID,
			Message: fmt.Sprintf("%s is over budget by %s.", name, row.OverBy),
		})
	}
	return nil
}

func (n *Notifier) goalCompleted(ctx context.Context, userID, goalID int64) error {
	goal, err := n.goals.GetGoal(ctx, userID, goalID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted since the event was published.
			return nil
		}
		return fmt.Errorf("get goal: %w", err)
	}
	n.sink(ctx, Alert{
		Kind:    AlertGoalCompleted,
		UserID:  userID,
		Message: fmt.Sprintf("Goal %q reached %s.", goal.Name, goal.Target),
	})
	return nil
}
