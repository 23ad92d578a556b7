package main

import (
	"context"
	"errors"
	"os"

	"budgetapp/internal/amqp"
	"budgetapp/internal/cli"
	applog "budgetapp/internal/log"
	"budgetapp/internal/services"
	"budgetapp/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentAMQP)
	logger.Info("Starting budget-notifier")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the notifier")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	notifier := worker.NewNotifier(services.NewReportService(repo), repo, nil)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	if err := amqpClient.Consume(ctx, notifier.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("budget-notifier stopped")
}
