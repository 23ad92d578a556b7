package core

import (
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// PeriodMonthly is the only budget period currently supported.
const PeriodMonthly = "monthly"

// AutoNoteSuffix marks transactions materialized from a recurring rule.
const AutoNoteSuffix = "(Auto)"

const maxNotesLength = 200

type (
	Frequency       string
	TransactionType string

	User struct {
		ID             int64     `json:"id"`
		Email          string    `json:"email"`
		Name           string    `json:"name"`
		PasswordHash   string    `json:"-"`
		SocialProvider string    `json:"social_provider,omitempty"`
		SocialID       string    `json:"-"`
		CreatedAt      time.Time `json:"created_at"`
	}

	Session struct {
		Token     string    `json:"-"`
		UserID    int64     `json:"user_id"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	Transaction struct {
		ID              int64           `json:"id"`
		OwnerID         int64           `json:"user_id"`
		Type            TransactionType `json:"type"`
		Amount          Money           `json:"amount"`
		Category        string          `json:"category"`
		Date            Date            `json:"date"`
		Notes           string          `json:"notes,omitempty"`
		IsRecurring     bool            `json:"is_recurring"`
		RecurringRuleID int64           `json:"recurring_rule_id,omitempty"`
	}

	RecurringRule struct {
		ID        int64           `json:"id"`
		OwnerID   int64           `json:"user_id"`
		Type      TransactionType `json:"type"`
		Amount    Money           `json:"amount"`
		Category  string          `json:"category"`
		Notes     string          `json:"notes,omitempty"`
		Frequency Frequency       `json:"frequency"`
		NextDue   Date            `json:"next_due"`
		Active    bool            `json:"active"`
	}

	Budget struct {
		ID       int64  `json:"id"`
		OwnerID  int64  `json:"user_id"`
		Category string `json:"category"`
		Limit    Money  `json:"limit_amount"`
		Period   string `json:"period"`
	}

	Goal struct {
		ID             int64  `json:"id"`
		OwnerID        int64  `json:"user_id"`
		Name           string `json:"name"`
		Target         Money  `json:"target_amount"`
		Current        Money  `json:"current_amount"`
		Deadline       Date   `json:"deadline"`
		LinkedCategory string `json:"linked_category,omitempty"`
		Completed      bool   `json:"completed"`
		Icon           string `json:"icon,omitempty"`
		Color          string `json:"color,omitempty"`
	}

	NotificationPrefs struct {
		WeeklySummary bool `json:"weekly_summary"`
		LowBalance    bool `json:"low_balance"`
	}

	Settings struct {
		OwnerID        int64             `json:"user_id"`
		Theme          string            `json:"theme"`
		Currency       string            `json:"currency"`
		Language       string            `json:"language"`
		BudgetStartDay int               `json:"budget_start_day"`
		Notifications  NotificationPrefs `json:"notifications"`
	}
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Notes) > maxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if err := r.NextDue.Validate(); err != nil {
		return NewValidationError("next_due", "invalid next due date")
	}
	if len(r.Notes) > maxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// Instance builds the transaction a rule produces on the given date.
func (r RecurringRule) Instance(on Date) Transaction {
	return Transaction{
		OwnerID:         r.OwnerID,
		Type:            r.Type,
		Amount:          r.Amount,
		Category:        r.Category,
		Date:            on,
		Notes:           strings.TrimSpace(r.Notes + " " + AutoNoteSuffix),
		IsRecurring:     true,
		RecurringRuleID: r.ID,
	}
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Limit.IsNegative() {
		return NewValidationError("limit_amount", "limit cannot be negative")
	}
	if b.Period != "" && b.Period != PeriodMonthly {
		return NewValidationError("period", "only monthly budgets are supported")
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return NewValidationError("name", "goal name is required")
	}
	if err := g.Target.Validate(); err != nil {
		return NewValidationError("target_amount", "target must be greater than zero")
	}
	if g.Current.IsNegative() {
		return NewValidationError("current_amount", "current amount cannot be negative")
	}
	if !g.Deadline.IsEmpty() {
		if err := g.Deadline.Validate(); err != nil {
			return NewValidationError("deadline", "invalid deadline")
		}
	}
	return nil
}

// Remaining returns how much is left before the goal is reached.
func (g Goal) Remaining() Money {
	if g.Current.Cents >= g.Target.Cents {
		return Money{}
	}
	return g.Target.Sub(g.Current)
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// DefaultSettings mirrors the defaults of a freshly created account.
func DefaultSettings(ownerID int64) Settings {
	return Settings{
		OwnerID:        ownerID,
		Theme:          "light",
		Currency:       "USD",
		Language:       "en",
		BudgetStartDay: 1,
		Notifications:  NotificationPrefs{WeeklySummary: true},
	}
}

func (s Settings) Validate() error {
	switch s.Theme {
	case "light", "dark":
	default:
		return NewValidationError("theme", "theme must be light or dark")
	}
	if len(s.Currency) != 3 {
		return NewValidationError("currency", "currency must be a 3-letter code")
	}
	if strings.TrimSpace(s.Language) == "" {
		return NewValidationError("language", "language is required")
	}
	if s.BudgetStartDay < 1 || s.BudgetStartDay > 28 {
		return NewValidationError("budget_start_day", "budget start day must be between 1 and 28")
	}
	return nil
}
