// Command seed fills a database with a demo account and a few months of
// generated activity.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"budgetapp/internal/cache"
	"budgetapp/internal/cli"
	"budgetapp/internal/config"
	"budgetapp/internal/core"
	"budgetapp/internal/services"
)

var expenseCategories = []string{"groceries", "transport", "entertainment", "dining", "rent"}

func main() {
	cli.LoadEnvFile()

	email := flag.String("email", "demo@example.com", "demo account email")
	password := flag.String("password", "demo-password", "demo account password")
	months := flag.Int("months", 3, "months of history to generate")
	perMonth := flag.Int("per-month", 25, "expenses generated per month")
	seed := flag.Int64("seed", 0, "random seed, 0 for time based")
	flag.Parse()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, "seed")
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(*seed)
	ctx := context.Background()

	authSvc := services.NewAuthService(repo, cache.NewLRUCache[core.Session](1, time.Minute), time.Hour)
	user, _, err := authSvc.Signup(ctx, faker.Name(), *email, *password)
	if err != nil {
		logger.Error("Failed to create demo user", "error", err, "email", *email)
		os.Exit(1)
	}

	txs := services.NewTransactionService(repo, nil)
	recurring := services.NewRecurringProcessor(repo, nil)
	planning := services.NewPlanningService(repo, nil)

	if _, err := planning.CreateGoal(ctx, user.ID, core.Goal{
		Name:           "Holiday fund",
		Target:         core.Money{Cents: 150000},
		Deadline:       core.Today().AddDays(180),
		LinkedCategory: core.CategoryIncome,
		Icon:           "🏖️",
	}); err != nil {
		logger.Error("Failed to create goal", "error", err)
		os.Exit(1)
	}

	for _, b := range []core.Budget{
		{Category: "groceries", Limit: core.Money{Cents: 40000}},
		{Category: "dining", Limit: core.Money{Cents: 12000}},
		{Category: "entertainment", Limit: core.Money{Cents: 8000}},
	} {
		if _, err := planning.SaveBudget(ctx, user.ID, b); err != nil {
			logger.Error("Failed to save budget", "error", err, "category", b.Category)
			os.Exit(1)
		}
	}

	today := core.Today()
	start := today.AddDays(-30 * *months)
	count := 0
	for m := 0; m < *months; m++ {
		monthStart := start.AddDays(30 * m)
		if _, err := txs.Create(ctx, user.ID, services.NewTransaction{Transaction: core.Transaction{
			Type:     core.Income,
			Amount:   core.MoneyFromFloat(faker.Price(2500, 3500)),
			Category: core.CategoryIncome,
			Date:     monthStart,
			Notes:    "Salary",
		}}); err != nil {
			logger.Error("Failed to create income", "error", err)
			os.Exit(1)
		}
		count++

		for i := 0; i < *perMonth; i++ {
			category := faker.RandomString(expenseCategories)
			if category == "rent" {
				continue
			}
			date := monthStart.AddDays(faker.Number(0, 29))
			if date.After(today) {
				continue
			}
			if _, err := txs.Create(ctx, user.ID, services.NewTransaction{Transaction: core.Transaction{
				Type:     core.Expense,
				Amount:   core.MoneyFromFloat(faker.Price(3, 90)),
				Category: category,
				Date:     date,
				Notes:    faker.Company(),
			}}); err != nil {
				logger.Error("Failed to create expense", "error", err, "category", category)
				os.Exit(1)
			}
			count++
		}
	}

	// Rent starts at the beginning of the history and is caught up below.
	if _, err := recurring.CreateRule(ctx, user.ID, core.RecurringRule{
		Type:      core.Expense,
		Amount:    core.Money{Cents: 95000},
		Category:  "rent",
		Notes:     "Rent",
		Frequency: core.Monthly,
		NextDue:   start,
	}); err != nil {
		logger.Error("Failed to create recurring rule", "error", err)
		os.Exit(1)
	}
	processed, err := recurring.Process(ctx, user.ID, today)
	if err != nil {
		logger.Error("Failed to process recurring rules", "error", err)
		os.Exit(1)
	}

	logger.Info("Demo data created",
		"email", *email,
		"user_id", user.ID,
		"transactions", count,
		"recurring_processed", processed)
}
