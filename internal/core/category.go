package core

import (
	"regexp"
	"strings"
)

const (
	CategoryUncategorized = "uncategorized"
	CategoryIncome        = "income"
)

// Category is an entry of a user's category table.
type Category struct {
	Key           string          `json:"id"`
	Name          string          `json:"name"`
	Type          TransactionType `json:"type"`
	Icon          string          `json:"icon"`
	DefaultBudget Money           `json:"default"`
}

// DefaultCategories seeds every new account.
var DefaultCategories = []Category{
	{Key: CategoryUncategorized, Name: "Uncategorized", Type: Expense, Icon: "❓"},
	{Key: CategoryIncome, Name: "Income", Type: Income, Icon: "💰"},
	{Key: "rent", Name: "Rent", Type: Expense, Icon: "🏠", DefaultBudget: Money{Cents: 120000}},
	{Key: "groceries", Name: "Groceries", Type: Expense, Icon: "🍎", DefaultBudget: Money{Cents: 45000}},
	{Key: "transport", Name: "Transport", Type: Expense, Icon: "🚌", DefaultBudget: Money{Cents: 10000}},
	{Key: "entertainment", Name: "Entertainment", Type: Expense, Icon: "🎬", DefaultBudget: Money{Cents: 10000}},
	{Key: "dining", Name: "Dining Out", Type: Expense, Icon: "🍜", DefaultBudget: Money{Cents: 15000}},
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]`)

// CategoryKey derives the storage key of a category from its display name.
func CategoryKey(name string) string {
	return nonKeyChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// IsProtectedCategory reports whether a category is required by the app.
func IsProtectedCategory(key string) bool {
	return key == CategoryUncategorized || key == CategoryIncome
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "category name is required")
	}
	if c.Key == "" || strings.Trim(c.Key, "-") == "" {
		return NewValidationError("name", "category name must contain letters or digits")
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if c.DefaultBudget.IsNegative() {
		return NewValidationError("default", "default budget cannot be negative")
	}
	return nil
}

// CategoryNames indexes a category list by key.
func CategoryNames(categories []Category) map[string]string {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.Key] = c.Name
	}
	return names
}
