package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"budgetapp/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository owns the database handle. Single statements are served by
// the embedded Queries; methods defined here span several statements and run
// inside one transaction.
type SQLiteRepository struct {
	*Queries
	db *sql.DB
}

// DSN builds the modernc.org/sqlite connection string for a database file.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY between
	// concurrent readers and writers of the same request.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		Queries: New(db),
		db:      db,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.Queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RegisterUser creates a user together with the default category table.
func (r *SQLiteRepository) RegisterUser(ctx context.Context, u core.User) (core.User, error) {
	var created core.User
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		created, err = q.CreateUser(ctx, u)
		if err != nil {
			return err
		}
		for _, c := range core.DefaultCategories {
			if err := q.CreateCategory(ctx, created.ID, c); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User registered",
		"user_id", created.ID,
		"provider", created.SocialProvider,
		"categories", len(core.DefaultCategories))
	return created, nil
}

// RecordTransaction inserts a transaction and stores the goals it advanced.
func (r *SQLiteRepository) RecordTransaction(ctx context.Context, tx core.Transaction, goals []core.Goal) (core.Transaction, error) {
	var created core.Transaction
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		created, err = q.CreateTransaction(ctx, tx)
		if err != nil {
			return err
		}
		for _, g := range goals {
			if err := q.UpdateGoalProgress(ctx, g); err != nil {
				return fmt.Errorf("goal %d: %w", g.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return created, nil
}

// CreateRecurringTransaction stores the first instance of a repeating
// transaction and the rule that produces the following ones.
func (r *SQLiteRepository) CreateRecurringTransaction(ctx context.Context, rule core.RecurringRule, first core.Transaction, goals []core.Goal) (core.RecurringRule, core.Transaction, error) {
	var (
		createdRule core.RecurringRule
		createdTx   core.Transaction
	)
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		createdRule, err = q.CreateRecurringRule(ctx, rule)
		if err != nil {
			return err
		}
		first.RecurringRuleID = createdRule.ID
		first.IsRecurring = true
		createdTx, err = q.CreateTransaction(ctx, first)
		if err != nil {
			return err
		}
		for _, g := range goals {
			if err := q.UpdateGoalProgress(ctx, g); err != nil {
				return fmt.Errorf("goal %d: %w", g.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return core.RecurringRule{}, core.Transaction{}, err
	}
	return createdRule, createdTx, nil
}

// RecurringRun is the outcome of one catch-up pass for a user.
type RecurringRun struct {
	Rules        []core.RecurringRule
	Transactions []core.Transaction
	Goals        []core.Goal
}

// SaveRecurringRun persists a catch-up pass atomically: new transactions,
// advanced due dates and goal progress either all land or none do.
func (r *SQLiteRepository) SaveRecurringRun(ctx context.Context, run RecurringRun) ([]core.Transaction, error) {
	created := make([]core.Transaction, 0, len(run.Transactions))
	err := r.withTx(ctx, func(q *Queries) error {
		for _, tx := range run.Transactions {
			saved, err := q.CreateTransaction(ctx, tx)
			if err != nil {
				return err
			}
			created = append(created, saved)
		}
		for _, rule := range run.Rules {
			if err := q.UpdateRecurringNextDue(ctx, rule.OwnerID, rule.ID, rule.NextDue); err != nil {
				return fmt.Errorf("rule %d: %w", rule.ID, err)
			}
		}
		for _, g := range run.Goals {
			if err := q.UpdateGoalProgress(ctx, g); err != nil {
				return fmt.Errorf("goal %d: %w", g.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveCategory reassigns everything filed under a category to
// uncategorized, then deletes it.
func (r *SQLiteRepository) RemoveCategory(ctx context.Context, userID int64, key string) error {
	if core.IsProtectedCategory(key) {
		return core.ErrProtectedCategory
	}
	err := r.withTx(ctx, func(q *Queries) error {
		if err := q.ReassignCategory(ctx, userID, key, core.CategoryUncategorized); err != nil {
			return err
		}
		return q.DeleteCategory(ctx, userID, key)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Category removed", "user_id", userID, "category", key)
	return nil
}

// DepositToGoal stores a manual goal contribution.
func (r *SQLiteRepository) DepositToGoal(ctx context.Context, g core.Goal) error {
	return r.UpdateGoalProgress(ctx, g)
}
