package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budgetapp/internal/core"
)

const transactionColumns = `id, user_id, type, amount_cents, category, date, notes, is_recurring, recurring_rule_id`

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx     core.Transaction
		date   string
		ruleID sql.NullInt64
	)
	if err := row.Scan(&tx.ID, &tx.OwnerID, &tx.Type, &tx.Amount.Cents, &tx.Category, &date, &tx.Notes, &tx.IsRecurring, &ruleID); err != nil {
		return core.Transaction{}, err
	}
	d, err := stringToDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}
	tx.Date = d
	tx.RecurringRuleID = ruleID.Int64
	return tx, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

const createTransaction = `
INSERT INTO transactions (user_id, type, amount_cents, category, date, notes, is_recurring, recurring_rule_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	var ruleID sql.NullInt64
	if tx.RecurringRuleID != 0 {
		ruleID = sql.NullInt64{Int64: tx.RecurringRuleID, Valid: true}
	}
	created, err := scanTransaction(q.db.QueryRowContext(ctx, createTransaction,
		tx.OwnerID, tx.Type, tx.Amount.Cents, tx.Category, dateToString(tx.Date), tx.Notes, boolToInt(tx.IsRecurring), ruleID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return created, nil
}

const listTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ?
ORDER BY date DESC, id DESC`

// ListTransactions returns every transaction of a user, newest first.
func (q *Queries) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return scanTransactions(rows)
}

const listTransactionsBetween = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ? AND date >= ? AND date <= ?
ORDER BY date DESC, id DESC`

// ListTransactionsBetween returns the transactions dated within [start, end].
func (q *Queries) ListTransactionsBetween(ctx context.Context, userID int64, start, end core.Date) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsBetween, userID, dateToString(start), dateToString(end))
	if err != nil {
		return nil, fmt.Errorf("list transactions between: %w", err)
	}
	return scanTransactions(rows)
}

const latestTransactionDate = `SELECT COALESCE(MAX(date), '') FROM transactions WHERE user_id = ?`

// LatestTransactionDate returns the date of the newest transaction, or the
// zero date when the user has none.
func (q *Queries) LatestTransactionDate(ctx context.Context, userID int64) (core.Date, error) {
	var s string
	if err := q.db.QueryRowContext(ctx, latestTransactionDate, userID).Scan(&s); err != nil {
		return core.Date{}, fmt.Errorf("latest transaction date: %w", err)
	}
	return stringToDate(s)
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return affectedOrNotFound(res)
}
