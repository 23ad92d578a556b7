package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgetapp/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func registerUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.RegisterUser(context.Background(), core.User{Email: email, Name: "Test", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("RegisterUser(%s) error = %v", email, err)
	}
	return u
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u := registerUser(t, repo, "Alice@Example.com")
	if u.ID == 0 || u.Email != "alice@example.com" {
		t.Errorf("user = %+v", u)
	}

	categories, err := repo.ListCategories(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != len(core.DefaultCategories) {
		t.Errorf("seeded %d categories, want %d", len(categories), len(core.DefaultCategories))
	}
	if last := categories[len(categories)-1]; last.Key != core.CategoryUncategorized {
		t.Errorf("uncategorized should sort last, got %s", last.Key)
	}

	if _, err := repo.RegisterUser(ctx, core.User{Email: "alice@example.com"}); !errors.Is(err, core.ErrDuplicateEmail) {
		t.Errorf("duplicate email: err = %v", err)
	}

	byEmail, err := repo.GetUserByEmail(ctx, " ALICE@example.com ")
	if err != nil || byEmail.ID != u.ID || byEmail.PasswordHash != "hash" {
		t.Errorf("GetUserByEmail() = %+v, %v", byEmail, err)
	}
	if _, err := repo.GetUserByID(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing user: err = %v", err)
	}
}

func TestLinkSocialAccount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := registerUser(t, repo, "bob@example.com")

	if err := repo.LinkSocialAccount(ctx, u.ID, "google", "g-1"); err != nil {
		t.Fatal(err)
	}
	// An existing link is never overwritten.
	if err := repo.LinkSocialAccount(ctx, u.ID, "google", "g-2"); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetUserByID(ctx, u.ID)
	if got.SocialProvider != "google" || got.SocialID != "g-1" {
		t.Errorf("user = %+v", got)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := registerUser(t, repo, "carol@example.com")
	now := time.Now().UTC().Truncate(time.Second)

	live := core.Session{Token: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}
	dead := core.Session{Token: "dead", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}
	for _, s := range []core.Session{live, dead} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.GetSession(ctx, "live")
	if err != nil || got.UserID != u.ID || !got.ExpiresAt.Equal(live.ExpiresAt) {
		t.Errorf("GetSession() = %+v, %v", got, err)
	}

	n, err := repo.DeleteExpiredSessions(ctx, now)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredSessions() = %d, %v", n, err)
	}
	if _, err := repo.GetSession(ctx, "dead"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expired session still present: %v", err)
	}

	if err := repo.DeleteSession(ctx, "live"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetSession(ctx, "live"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted session still present: %v", err)
	}
}

func TestTransactionsAreScopedByOwner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := registerUser(t, repo, "alice@example.com")
	bob := registerUser(t, repo, "bob@example.com")

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		OwnerID: alice.ID, Type: core.Expense, Amount: core.Money{Cents: 4250},
		Category: "groceries", Date: core.NewDate(2024, 1, 15), Notes: "Market",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tx.ID == 0 || tx.Amount.Cents != 4250 || !tx.Date.Equal(core.NewDate(2024, 1, 15)) || tx.IsRecurring {
		t.Errorf("created = %+v", tx)
	}

	bobs, err := repo.ListTransactions(ctx, bob.ID)
	if err != nil || len(bobs) != 0 {
		t.Errorf("bob sees %d transactions, err %v", len(bobs), err)
	}
	if err := repo.DeleteTransaction(ctx, bob.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete: err = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, alice.ID, tx.ID); err != nil {
		t.Errorf("owner delete: err = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, alice.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestListTransactionsBetween(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := registerUser(t, repo, "dave@example.com")

	for _, d := range []core.Date{core.NewDate(2023, 12, 31), core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 1)} {
		if _, err := repo.CreateTransaction(ctx, core.Transaction{OwnerID: u.ID, Type: core.Expense, Amount: core.Money{Cents: 100}, Category: "dining", Date: d}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.ListTransactionsBetween(ctx, u.ID, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got[0].Date.Equal(core.NewDate(2024, 1, 31)) {
		t.Errorf("got %+v", got)
	}

	latest, err := repo.LatestTransactionDate(ctx, u.ID)
	if err != nil || !latest.Equal(core.NewDate(2024, 2, 1)) {
		t.Errorf("LatestTransactionDate() = %s, %v", latest, err)
	}
	empty, err := repo.LatestTransactionDate(ctx, u.ID+1)
	if err != nil || !empty.IsEmpty() {
		t.Errorf("LatestTransactionDate(no rows) = %s, %v", empty, err)
	}
}

func TestUpsertBudget(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := registerUser(t, repo, "erin@example.com")

	if _, err := repo.UpsertBudget(ctx, core.Budget{OwnerID: u.ID, Category: "dining", Limit: core.Money{Cents: 10000}}); err != nil {
		t.Fatal(err)
	}
	updated, err := repo.UpsertBudget(ctx, core.Budget{OwnerID: u.ID, Category: "dining", Limit: core.Money{Cents: 25000}})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Limit.Cents != 25000 || updated.Period != core.PeriodMonthly {
		t.Errorf("updated = %+v", updated)
	}

	budgets, err := repo.ListBudgets(ctx, u.ID)
	if err != nil || len(budgets) != 1 {
		t.Fatalf("budgets = %+v, %v", budgets, err)
	}

	if err := repo.DeleteBudget(ctx, u.ID, "dining"); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteBudget(ctx, u.ID, "dining"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestSettingsUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := registerUser(t, repo, "frank@example.com")

	got, err := repo.GetSettings(ctx, u.ID)
	if err != nil || got != core.DefaultSettings(u.ID) {
		t.Errorf("defaults = %+v, %v", got, err)
	}

	s := core.Settings{OwnerID: u.ID, Theme: "dark", Currency: "EUR", Language: "it", BudgetStartDay: 15,
		Notifications: core.NotificationPrefs{LowBalance: true}}
	for i := 0; i < 2; i++ {
		if err := repo.UpsertSettings(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	got, err = repo.GetSettings(ctx, u.ID)
	if err != nil || got != s {
		t.Errorf("settings = %+v, %v", got, err)
	}
}

func TestGoals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := registerUser(t, repo, "gina@example.com")

	g, err := repo.CreateGoal(ctx, core.Goal{OwnerID: u.ID, Name: "Trip", Target: core.Money{Cents: 10000}, LinkedCategory: "dining", Deadline: core.NewDate(2024, 12, 1)})
	if err != nil {
		t.Fatal(err)
	}
	g.Current = core.Money{Cents: 10000}
	g.Completed = true
	if err := repo.DepositToGoal(ctx, g); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetGoal(ctx, u.ID, g.ID)
	if err != nil || !got.Completed || got.Current.Cents != 10000 || !got.Deadline.Equal(core.NewDate(2024, 12, 1)) {
		t.Errorf("goal = %+v, %v", got, err)
	}
	if _, err := repo.GetGoal(ctx, u.ID+1, g.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign goal: err = %v", err)
	}
	if err := repo.DeleteGoal(ctx, u.ID, g.ID); err != nil {
		t.Fatal(err)
	}
}

func TestRemoveCategory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := registerUser(t, repo, "hank@example.com")

	if _, err := repo.CreateTransaction(ctx, core.Transaction{OwnerID: u.ID, Type: core.Expense, Amount: core.Money{Cents: 900}, Category: "dining", Date: core.NewDate(2024, 1, 2)}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateRecurringRule(ctx, core.RecurringRule{OwnerID: u.ID, Type: core.Expense, Amount: core.Money{Cents: 900}, Category: "dining", Frequency: core.Weekly, NextDue: core.NewDate(2024, 1, 9), Active: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.UpsertBudget(ctx, core.Budget{OwnerID: u.ID, Category: "dining", Limit: core.Money{Cents: 5000}}); err != nil {
		t.Fatal(err)
	}
	goal, err := repo.CreateGoal(ctx, core.Goal{OwnerID: u.ID, Name: "Less takeout", Target: core.Money{Cents: 100}, LinkedCategory: "dining"})
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.RemoveCategory(ctx, u.ID, "dining"); err != nil {
		t.Fatal(err)
	}

	txs, _ := repo.ListTransactions(ctx, u.ID)
	rules, _ := repo.ListRecurringRules(ctx, u.ID)
	budgets, _ := repo.ListBudgets(ctx, u.ID)
	g, _ := repo.GetGoal(ctx, u.ID, goal.ID)
	if txs[0].Category != core.CategoryUncategorized || rules[0].Category != core.CategoryUncategorized {
		t.Errorf("not reassigned: tx %s rule %s", txs[0].Category, rules[0].Category)
	}
	if len(budgets) != 0 || g.LinkedCategory != "" {
		t.Errorf("budgets %+v goal %+v", budgets, g)
	}
	if ok, _ := repo.CategoryExists(ctx, u.ID, "dining"); ok {
		t.Error("category still exists")
	}

	if err := repo.RemoveCategory(ctx, u.ID, core.CategoryIncome); !errors.Is(err, core.ErrProtectedCategory) {
		t.Errorf("protected category: err = %v", err)
	}
	if err := repo.RemoveCategory(ctx, u.ID, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing category: err = %v", err)
	}
}

func TestSaveRecurringRun(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := registerUser(t, repo, "ivy@example.com")

	rule, err := repo.CreateRecurringRule(ctx, core.RecurringRule{OwnerID: u.ID, Type: core.Expense, Amount: core.Money{Cents: 120000}, Category: "rent", Frequency: core.Monthly, NextDue: core.NewDate(2024, 1, 1), Active: true})
	if err != nil {
		t.Fatal(err)
	}

	due, err := repo.ListDueRecurringRules(ctx, u.ID, core.NewDate(2024, 1, 1))
	if err != nil || len(due) != 1 {
		t.Fatalf("due = %+v, %v", due, err)
	}

	rule.NextDue = core.NewDate(2024, 2, 1)
	created, err := repo.SaveRecurringRun(ctx, RecurringRun{
		Rules:        []core.RecurringRule{rule},
		Transactions: []core.Transaction{rule.Instance(core.NewDate(2024, 1, 1))},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || created[0].RecurringRuleID != rule.ID || !created[0].IsRecurring {
		t.Errorf("created = %+v", created)
	}

	due, _ = repo.ListDueRecurringRules(ctx, u.ID, core.NewDate(2024, 1, 31))
	if len(due) != 0 {
		t.Errorf("rule still due after run: %+v", due)
	}

	// A failing statement rolls the whole run back.
	bad := rule
	bad.ID = 9999
	_, err = repo.SaveRecurringRun(ctx, RecurringRun{
		Rules:        []core.RecurringRule{bad},
		Transactions: []core.Transaction{rule.Instance(core.NewDate(2024, 2, 1))},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	txs, _ := repo.ListTransactions(ctx, u.ID)
	if len(txs) != 1 {
		t.Errorf("rolled back run left %d transactions", len(txs))
	}
}
