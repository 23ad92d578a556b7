package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetapp/internal/core"
)

// topCategoriesShown is how many categories the summary ranks.
const topCategoriesShown = 5

// Report is the period summary served to the dashboard.
type Report struct {
	Start          core.Date         `json:"start"`
	End            core.Date         `json:"end"`
	Summary        Summary           `json:"summary"`
	CategoryTotals []CategoryTotal   `json:"category_totals"`
	TopCategories  []CategoryTotal   `json:"top_categories"`
	Budgets        BudgetReport      `json:"budgets"`
	Metrics        Metrics           `json:"metrics"`
	Insight        Insight           `json:"insight"`
	CategoryNames  map[string]string `json:"category_names"`
	Transactions   int               `json:"transaction_count"`
}

// ProjectedItem is an expected future occurrence of a recurring rule.
type ProjectedItem struct {
	RuleID   int64                `json:"rule_id"`
	Type     core.TransactionType `json:"type"`
	Amount   core.Money           `json:"amount"`
	Category string               `json:"category"`
	Notes    string               `json:"notes,omitempty"`
}

// CalendarDay groups what happened, or is expected to happen, on one day.
type CalendarDay struct {
	Date         core.Date          `json:"date"`
	Transactions []core.Transaction `json:"transactions"`
	Projected    []ProjectedItem    `json:"projected"`
	Income       core.Money         `json:"income"`
	Expense      core.Money         `json:"expense"`
}

// Calendar is a month of CalendarDays.
type Calendar struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}

// ReportService assembles reports from the period aggregator.
type ReportService struct {
	store ReportStore
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

// Summary builds the report for [start, end]. today drives the insight.
func (s *ReportService) Summary(ctx context.Context, userID int64, start, end, today core.Date) (Report, error) {
	if end.Before(start) {
		return Report{}, core.NewValidationError("end", "end must not be before start")
	}

	var (
		txs          []core.Transaction
		budgets      []core.Budget
		categories   []core.Category
		lastActivity core.Date
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactionsBetween(gctx, userID, start, end)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		budgets, err = s.store.ListBudgets(gctx, userID)
		if err != nil {
			return fmt.Errorf("load budgets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx, userID)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		lastActivity, err = s.store.LatestTransactionDate(gctx, userID)
		if err != nil {
			return fmt.Errorf("load last activity: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	txs = FilterByPeriod(txs, start, end)
	totals := CategoryTotals(txs)
	budgetReport := BudgetStatus(budgets, txs, start, end)
	metrics := ComputeMetrics(budgets, txs, start, end)

	return Report{
		Start:          start,
		End:            end,
		Summary:        Summarize(txs),
		CategoryTotals: TopCategories(totals, len(totals)),
		TopCategories:  TopCategories(totals, topCategoriesShown),
		Budgets:        budgetReport,
		Metrics:        metrics,
		Insight:        Insights(metrics, budgetReport, lastActivity, today),
		CategoryNames:  core.CategoryNames(categories),
		Transactions:   len(txs),
	}, nil
}

// Calendar lays out a month: recorded transactions plus projected instances
// of active recurring rules.
func (s *ReportService) Calendar(ctx context.Context, userID int64, year int, month time.Month) (Calendar, error) {
	if month < time.January || month > time.December {
		return Calendar{}, core.NewValidationError("month", "month must be between 1 and 12")
	}
	start, end := MonthRange(year, month)

	var (
		txs   []core.Transaction
		rules []core.RecurringRule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactionsBetween(gctx, userID, start, end)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rules, err = s.store.ListRecurringRules(gctx, userID)
		if err != nil {
			return fmt.Errorf("load recurring rules: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Calendar{}, err
	}

	days := make([]CalendarDay, core.DaysInMonth(year, month))
	for i := range days {
		days[i] = CalendarDay{
			Date:         start.AddDays(i),
			Transactions: []core.Transaction{},
			Projected:    []ProjectedItem{},
		}
	}

	for _, tx := range FilterByPeriod(txs, start, end) {
		day := &days[tx.Date.Day()-1]
		day.Transactions = append(day.Transactions, tx)
		if tx.Type == core.Income {
			day.Income = day.Income.Add(tx.Amount)
		} else {
			day.Expense = day.Expense.Add(tx.Amount)
		}
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	for _, rule := range rules {
		dates, err := Project(rule, start, end)
		if err != nil {
			// Unknown frequencies are reported by the processor; nothing to draw.
			continue
		}
		for _, d := range dates {
			day := &days[d.Day()-1]
			day.Projected = append(day.Projected, ProjectedItem{
				RuleID:   rule.ID,
				Type:     rule.Type,
				Amount:   rule.Amount,
				Category: rule.Category,
				Notes:    rule.Notes,
			})
		}
	}

	return Calendar{Year: year, Month: int(month), Days: days}, nil
}
