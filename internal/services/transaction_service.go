package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"budgetapp/internal/amqp"
	"budgetapp/internal/core"
)

// NewTransaction is a transaction submitted by a user. When Recurring is set
// the transaction is the first instance of a rule repeating at Frequency.
type NewTransaction struct {
	core.Transaction
	Recurring bool
	Frequency core.Frequency
}

// CreatedTransaction is the outcome of TransactionService.Create.
type CreatedTransaction struct {
	Transaction core.Transaction
	// Rule is set when the transaction started a recurring rule.
	Rule  *core.RecurringRule
	Goals []GoalUpdate
}

// TransactionService orchestrates transaction writes across storage, goal
// auto-tracking and event publishing.
type TransactionService struct {
	store     TransactionStore
	publisher Publisher
}

func NewTransactionService(store TransactionStore, publisher Publisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

// Create validates and stores a transaction, crediting linked goals in the
// same database transaction.
func (s *TransactionService) Create(ctx context.Context, userID int64, in NewTransaction) (CreatedTransaction, error) {
	tx := in.Transaction
	tx.ID = 0
	tx.OwnerID = userID
	tx.IsRecurring = false
	tx.RecurringRuleID = 0
	tx.Category = strings.TrimSpace(tx.Category)
	tx.Notes = strings.TrimSpace(tx.Notes)
	if tx.Notes == "" {
		tx.Notes = defaultNotes(tx.Type)
	}

	if err := tx.Validate(); err != nil {
		return CreatedTransaction{}, err
	}
	if in.Recurring && !in.Frequency.Valid() {
		return CreatedTransaction{}, core.ErrInvalidFrequency
	}
	if err := requireCategory(ctx, s.store, userID, tx.Category); err != nil {
		return CreatedTransaction{}, err
	}

	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return CreatedTransaction{}, fmt.Errorf("load goals: %w", err)
	}
	updates := ApplyAutoTrack(goals, tx)

	result := CreatedTransaction{Goals: updates}
	if in.Recurring {
		next, err := Advance(tx.Date, in.Frequency)
		if err != nil {
			return CreatedTransaction{}, err
		}
		rule := core.RecurringRule{
			OwnerID:   userID,
			Type:      tx.Type,
			Amount:    tx.Amount,
			Category:  tx.Category,
			Notes:     tx.Notes,
			Frequency: in.Frequency,
			NextDue:   next,
			Active:    true,
		}
		created, first, err := s.store.CreateRecurringTransaction(ctx, rule, tx, goalsOf(updates))
		if err != nil {
			return CreatedTransaction{}, fmt.Errorf("save recurring transaction: %w", err)
		}
		result.Transaction = first
		result.Rule = &created
	} else {
		created, err := s.store.RecordTransaction(ctx, tx, goalsOf(updates))
		if err != nil {
			return CreatedTransaction{}, fmt.Errorf("save transaction: %w", err)
		}
		result.Transaction = created
	}

	slog.InfoContext(ctx, "Transaction created",
		"user_id", userID,
		"transaction_id", result.Transaction.ID,
		"type", result.Transaction.Type,
		"amount_cents", result.Transaction.Amount.Cents,
		"category", result.Transaction.Category,
		"recurring", in.Recurring,
		"goals_updated", len(updates))

	publish(ctx, s.publisher, amqp.NewEvent(amqp.EventTransactionCreated, userID, result.Transaction.ID))
	publishCompletedGoals(ctx, s.publisher, updates)
	return result, nil
}

// List returns every transaction of the user, newest first.
func (s *TransactionService) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Delete removes a transaction. Goal progress it contributed is kept, since
// goals only ever grow.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "user_id", userID, "transaction_id", id)
	return nil
}

func defaultNotes(t core.TransactionType) string {
	if t == core.Income {
		return "Income"
	}
	return "Expense"
}
