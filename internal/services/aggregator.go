package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"budgetapp/internal/core"
)

const (
	// warningPercent is the usage above which a budget row turns to warning.
	warningPercent = 85
	// maxBudgetWarnings caps the category list of a BudgetReport.
	maxBudgetWarnings = 3
	// inactivityDays is how long without a transaction before the inactivity insight fires.
	inactivityDays = 3
)

// Summary holds the totals of a set of transactions.
type Summary struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

// Combine adds two summaries. Summaries of disjoint sets combine to the
// summary of their union.
func (s Summary) Combine(o Summary) Summary {
	return Summary{
		Income:  s.Income.Add(o.Income),
		Expense: s.Expense.Add(o.Expense),
		Net:     s.Net.Add(o.Net),
	}
}

// CategoryTotal is one entry of a ranked category list.
type CategoryTotal struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

// Row states of a BudgetReport.
const (
	BudgetNoLimit = "no_limit"
	BudgetOK      = "ok"
	BudgetWarning = "warning"
	BudgetOver    = "over"
)

// BudgetRow describes spending against one category limit.
type BudgetRow struct {
	Category  string     `json:"category"`
	Limit     core.Money `json:"limit"`
	Spent     core.Money `json:"spent"`
	Remaining core.Money `json:"remaining"`
	OverBy    core.Money `json:"over_by"`
	Percent   int        `json:"percent"`
	State     string     `json:"state"`
}

// BudgetReport summarizes every budget over a period.
type BudgetReport struct {
	OnTrack int `json:"on_track"`
	Over    int `json:"over"`
	Total   int `json:"total"`
	// Warnings lists at most three over-budget category keys.
	Warnings []string `json:"warnings"`
	// Overflow counts over-budget categories left out of Warnings.
	Overflow int         `json:"overflow"`
	Rows     []BudgetRow `json:"rows"`
}

// Metrics is the dashboard headline for a period.
type Metrics struct {
	Budget    core.Money `json:"budget"`
	Spent     core.Money `json:"spent"`
	Remaining core.Money `json:"remaining"`
}

// Insight kinds, in priority order.
const (
	InsightOverBudget = "over_budget"
	InsightSaving     = "saving"
	InsightInactive   = "inactive"
	InsightWelcome    = "welcome"
)

// Insight is a one-line hint for the dashboard.
type Insight struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// FilterByPeriod keeps the transactions dated within [start, end], both inclusive.
func FilterByPeriod(txs []core.Transaction, start, end core.Date) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Summarize totals income and expense and derives the net balance.
func Summarize(txs []core.Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			s.Income = s.Income.Add(tx.Amount)
		case core.Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}

// CategoryTotals sums expenses per category. Income is ignored.
func CategoryTotals(txs []core.Transaction) map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
	}
	return totals
}

// TopCategories ranks category totals by amount, largest first, and keeps n
// entries. n <= 0 keeps them all.
func TopCategories(totals map[string]core.Money, n int) []CategoryTotal {
	ranked := make([]CategoryTotal, 0, len(totals))
	for category, amount := range totals {
		ranked = append(ranked, CategoryTotal{Category: category, Amount: amount})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Amount.Cents != ranked[j].Amount.Cents {
			return ranked[i].Amount.Cents > ranked[j].Amount.Cents
		}
		return ranked[i].Category < ranked[j].Category
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// BudgetMultiplier scales monthly limits to a period: a quarter for ranges
// shorter than 8 days, twelve for ranges longer than 360 days, one otherwise.
// Only ComputeMetrics applies the yearly factor; see statusMultiplier.
func BudgetMultiplier(start, end core.Date) decimal.Decimal {
	days := core.DaysBetween(start, end) + 1
	switch {
	case days < 8:
		return decimal.New(25, -2)
	case days > 360:
		return decimal.NewFromInt(12)
	default:
		return decimal.NewFromInt(1)
	}
}

// statusMultiplier is BudgetMultiplier without the yearly factor: per-budget
// status only shrinks limits for short ranges.
func statusMultiplier(start, end core.Date) decimal.Decimal {
	m := BudgetMultiplier(start, end)
	if m.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return m
}

// BudgetStatus compares spending in [start, end] with every budget.
// Rows follow the order of budgets.
func BudgetStatus(budgets []core.Budget, txs []core.Transaction, start, end core.Date) BudgetReport {
	report := BudgetReport{Warnings: []string{}, Rows: make([]BudgetRow, 0, len(budgets))}
	spent := CategoryTotals(FilterByPeriod(txs, start, end))
	multiplier := statusMultiplier(start, end)

	for _, b := range budgets {
		row := budgetRow(b.Category, b.Limit.Mul(multiplier), spent[b.Category])
		report.Rows = append(report.Rows, row)
		report.Total++

		if row.State == BudgetOver {
			report.Over++
			if len(report.Warnings) < maxBudgetWarnings {
				report.Warnings = append(report.Warnings, b.Category)
			} else {
				report.Overflow++
			}
			continue
		}
		report.OnTrack++
	}
	return report
}

func budgetRow(category string, limit, spent core.Money) BudgetRow {
	row := BudgetRow{Category: category, Limit: limit, Spent: spent}

	switch {
	case limit.Cents > 0:
		row.Percent = int(spent.Decimal().Div(limit.Decimal()).Shift(2).Round(0).IntPart())
		if row.Percent > 100 {
			row.Percent = 100
		}
	case spent.Cents > 0:
		row.Percent = 100
	}

	switch {
	case limit.IsZero() && spent.IsZero():
		row.State = BudgetNoLimit
	case spent.Cents > limit.Cents:
		row.State = BudgetOver
		row.OverBy = spent.Sub(limit)
	case row.Percent > warningPercent:
		row.State = BudgetWarning
	default:
		row.State = BudgetOK
	}
	if spent.Cents < limit.Cents {
		row.Remaining = limit.Sub(spent)
	}
	return row
}

// ComputeMetrics totals the scaled budgets and the expenses of [start, end].
func ComputeMetrics(budgets []core.Budget, txs []core.Transaction, start, end core.Date) Metrics {
	multiplier := BudgetMultiplier(start, end)
	var m Metrics
	for _, b := range budgets {
		m.Budget = m.Budget.Add(b.Limit.Mul(multiplier))
	}
	m.Spent = Summarize(FilterByPeriod(txs, start, end)).Expense
	m.Remaining = m.Budget.Sub(m.Spent)
	return m
}

// Insights picks the most relevant hint for the dashboard. lastActivity is
// the date of the newest transaction, zero when there is none.
func Insights(m Metrics, report BudgetReport, lastActivity, today core.Date) Insight {
	if report.Over > 0 {
		return Insight{
			Kind:    InsightOverBudget,
			Message: fmt.Sprintf("You've exceeded the budget in %d categories.", report.Over),
		}
	}
	// More than a fifth of the budget left.
	if m.Budget.Cents > 0 && m.Remaining.Cents*5 > m.Budget.Cents {
		return Insight{
			Kind:    InsightSaving,
			Message: fmt.Sprintf("You have %s left to spend or save this period.", m.Remaining),
		}
	}
	if !lastActivity.IsEmpty() && lastActivity.Before(today) {
		if days := core.DaysBetween(lastActivity, today); days > inactivityDays {
			return Insight{
				Kind:    InsightInactive,
				Message: fmt.Sprintf("It's been %d days since your last transaction.", days),
			}
		}
	}
	return Insight{Kind: InsightWelcome, Message: "Welcome back! Stay focused on your goals."}
}

// MonthRange returns the first and last day of a month.
func MonthRange(year int, month time.Month) (core.Date, core.Date) {
	start := core.NewDate(year, int(month), 1)
	return start, core.NewDate(year, int(month), core.DaysInMonth(year, month))
}

// Period kinds accepted by PeriodRange.
const (
	PeriodWeek      = "week"
	PeriodMonth     = "month"
	PeriodLastMonth = "last-month"
	PeriodYear      = "year"
)

// PeriodRange resolves a named period relative to today. A week runs from
// Monday to today.
func PeriodRange(kind string, today core.Date) (core.Date, core.Date, error) {
	switch kind {
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		return today.AddDays(-offset), today, nil
	case PeriodMonth:
		start, end := MonthRange(today.Year(), time.Month(today.Month()))
		return start, end, nil
	case PeriodLastMonth:
		first := core.NewDate(today.Year(), today.Month()-1, 1)
		start, end := MonthRange(first.Year(), time.Month(first.Month()))
		return start, end, nil
	case PeriodYear:
		return core.NewDate(today.Year(), 1, 1), core.NewDate(today.Year(), 12, 31), nil
	default:
		return core.Date{}, core.Date{}, core.NewValidationError("period", fmt.Sprintf("unknown period %q", kind))
	}
}
