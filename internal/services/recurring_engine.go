package services

import (
	"fmt"

	"budgetapp/internal/core"
)

const (
	// MaxCatchUpIterations bounds how many cycles one catch-up run may process.
	MaxCatchUpIterations = 12
	// DuplicateWindowDays is the distance under which an existing transaction
	// with the same amount and category counts as already recorded.
	DuplicateWindowDays = 3
	// MaxProjectionSteps bounds how many occurrences Project walks.
	MaxProjectionSteps = 60
)

// CatchUpResult holds the outcome of processing one rule.
type CatchUpResult struct {
	// Materialized are the new transactions, oldest first. They are not persisted.
	Materialized []core.Transaction
	// Rule is the input rule with NextDue advanced past every processed cycle.
	Rule core.RecurringRule
	// Skipped counts cycles dropped by the duplicate guard.
	Skipped int
}

// CatchUp materializes every overdue occurrence of rule up to and including
// today. At most MaxCatchUpIterations cycles are processed per call, so a rule
// far behind catches up over several calls.
//
// existing is the owner's transaction history used by the duplicate guard.
// Each materialized instance joins the guard set before the next cycle, so
// the outcome does not depend on how the catch-up is split across calls.
func CatchUp(rule core.RecurringRule, today core.Date, existing []core.Transaction) (CatchUpResult, error) {
	result := CatchUpResult{Rule: rule}
	if !rule.Active || rule.NextDue.IsEmpty() {
		return result, nil
	}
	if _, err := GetStepper(rule.Frequency); err != nil {
		return CatchUpResult{Rule: rule}, fmt.Errorf("rule %d: %w", rule.ID, err)
	}

	seen := make([]core.Transaction, len(existing), len(existing)+MaxCatchUpIterations)
	copy(seen, existing)

	due := rule.NextDue
	for i := 0; i < MaxCatchUpIterations && !due.After(today); i++ {
		if hasDuplicate(seen, rule, due) {
			result.Skipped++
		} else {
			tx := rule.Instance(due)
			result.Materialized = append(result.Materialized, tx)
			seen = append(seen, tx)
		}

		next, err := Advance(due, rule.Frequency)
		if err != nil {
			return CatchUpResult{Rule: rule}, fmt.Errorf("rule %d: %w", rule.ID, err)
		}
		due = next
	}

	result.Rule.NextDue = due
	return result, nil
}

func hasDuplicate(existing []core.Transaction, rule core.RecurringRule, due core.Date) bool {
	for _, tx := range existing {
		if tx.Amount != rule.Amount || tx.Category != rule.Category {
			continue
		}
		if core.DaysBetween(tx.Date, due) < DuplicateWindowDays {
			return true
		}
	}
	return false
}

// Project lists the due dates of an active rule that fall within [start, end],
// walking forward from NextDue for at most MaxProjectionSteps occurrences.
func Project(rule core.RecurringRule, start, end core.Date) ([]core.Date, error) {
	if !rule.Active || rule.NextDue.IsEmpty() || end.Before(start) {
		return nil, nil
	}

	var dates []core.Date
	due := rule.NextDue
	for i := 0; i < MaxProjectionSteps && !due.After(end); i++ {
		if !due.Before(start) {
			dates = append(dates, due)
		}
		next, err := Advance(due, rule.Frequency)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", rule.ID, err)
		}
		due = next
	}
	return dates, nil
}
