package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"budgetapp/internal/amqp"
	"budgetapp/internal/core"
	"budgetapp/internal/storage"
)

// RecurringProcessor runs the recurring engine for a user and persists the
// result. It also manages the user's rules.
type RecurringProcessor struct {
	store     RecurringStore
	publisher Publisher
}

func NewRecurringProcessor(store RecurringStore, publisher Publisher) *RecurringProcessor {
	return &RecurringProcessor{store: store, publisher: publisher}
}

// Process materializes every overdue occurrence of the user's active rules
// up to today and returns how many transactions were created. A rule with an
// unknown frequency is logged and skipped; the other rules still run.
func (p *RecurringProcessor) Process(ctx context.Context, userID int64, today core.Date) (int, error) {
	rules, err := p.store.ListDueRecurringRules(ctx, userID, today)
	if err != nil {
		return 0, fmt.Errorf("list due recurring rules: %w", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}

	existing, err := p.store.ListTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	goals, err := p.store.ListGoals(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list goals: %w", err)
	}

	var (
		run       storage.RecurringRun
		completed []GoalUpdate
		changed   = make(map[int64]bool)
	)
	for _, rule := range rules {
		result, err := CatchUp(rule, today, existing)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping recurring rule",
				"user_id", userID,
				"rule_id", rule.ID,
				"frequency", rule.Frequency,
				"error", err)
			continue
		}
		if result.Rule.NextDue.Equal(rule.NextDue) {
			continue
		}

		run.Rules = append(run.Rules, result.Rule)
		for _, tx := range result.Materialized {
			run.Transactions = append(run.Transactions, tx)
			existing = append(existing, tx)
			for _, u := range ApplyAutoTrack(goals, tx) {
				replaceGoal(goals, u.Goal)
				changed[u.Goal.ID] = true
				if u.JustCompleted {
					completed = append(completed, u)
				}
			}
		}

		slog.DebugContext(ctx, "Recurring rule caught up",
			"rule_id", rule.ID,
			"materialized", len(result.Materialized),
			"skipped", result.Skipped,
			"next_due", result.Rule.NextDue.String())
	}
	if len(run.Rules) == 0 {
		return 0, nil
	}

	for _, g := range goals {
		if changed[g.ID] {
			run.Goals = append(run.Goals, g)
		}
	}

	created, err := p.store.SaveRecurringRun(ctx, run)
	if err != nil {
		return 0, fmt.Errorf("save recurring run: %w", err)
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"user_id", userID,
		"rules_advanced", len(run.Rules),
		"materialized", len(created),
		"goals_updated", len(run.Goals),
		"processing_date", today.String())

	if len(created) > 0 {
		evt := amqp.NewEvent(amqp.EventRecurringProcessed, userID, 0)
		evt.Count = len(created)
		publish(ctx, p.publisher, evt)
	}
	publishCompletedGoals(ctx, p.publisher, completed)
	return len(created), nil
}

// CreateRule stores a new recurring rule. NextDue is the first date the
// rule fires.
func (p *RecurringProcessor) CreateRule(ctx context.Context, userID int64, rule core.RecurringRule) (core.RecurringRule, error) {
	rule.ID = 0
	rule.OwnerID = userID
	rule.Active = true
	rule.Category = strings.TrimSpace(rule.Category)
	rule.Notes = strings.TrimSpace(rule.Notes)
	if rule.Notes == "" {
		rule.Notes = defaultNotes(rule.Type)
	}
	if err := rule.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	if err := requireCategory(ctx, p.store, userID, rule.Category); err != nil {
		return core.RecurringRule{}, err
	}

	created, err := p.store.CreateRecurringRule(ctx, rule)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("create recurring rule: %w", err)
	}
	slog.InfoContext(ctx, "Recurring rule created",
		"user_id", userID,
		"rule_id", created.ID,
		"frequency", created.Frequency,
		"next_due", created.NextDue.String())
	return created, nil
}

func (p *RecurringProcessor) ListRules(ctx context.Context, userID int64) ([]core.RecurringRule, error) {
	rules, err := p.store.ListRecurringRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	return rules, nil
}

// DeleteRule removes a rule. Transactions it produced stay.
func (p *RecurringProcessor) DeleteRule(ctx context.Context, userID, id int64) error {
	return p.store.DeleteRecurringRule(ctx, userID, id)
}

func replaceGoal(goals []core.Goal, g core.Goal) {
	for i := range goals {
		if goals[i].ID == g.ID {
			goals[i] = g
			return
		}
	}
}
