package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetapp/internal/amqp"
	"budgetapp/internal/auth"
	"budgetapp/internal/cache"
	"budgetapp/internal/cli"
	"budgetapp/internal/core"
	apphttp "budgetapp/internal/http"
	applog "budgetapp/internal/log"
	"budgetapp/internal/services"
)

const (
	sessionCacheSize     = 1000
	cacheCleanupInterval = 5 * time.Minute
)

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentApp)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Event publishing is optional; services treat a nil Publisher as disabled.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - no change events will be published")
	}

	sessions := cache.NewLRUCache[core.Session](sessionCacheSize, cfg.SessionTTL)
	caches := cache.NewManager()
	caches.Register(sessions)
	caches.Register(cache.CleanerFunc(func() int {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		n, err := repo.DeleteExpiredSessions(ctx, time.Now())
		if err != nil {
			logger.Warn("Failed to purge expired sessions", "error", err)
			return 0
		}
		return int(n)
	}))
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	svc := apphttp.Services{
		Auth:         services.NewAuthService(repo, sessions, cfg.SessionTTL),
		Transactions: services.NewTransactionService(repo, publisher),
		Recurring:    services.NewRecurringProcessor(repo, publisher),
		Reports:      services.NewReportService(repo),
		Categories:   services.NewCategoryService(repo),
		Planning:     services.NewPlanningService(repo, publisher),
	}

	opts := apphttp.Options{
		CookieSecure:  cfg.CookieSecure,
		AuthRateLimit: cfg.AuthRateLimit,
		Ready:         repo,
		Logger:        logger,
	}
	if cfg.GoogleEnabled() {
		opts.Google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		opts.States = auth.NewStateSigner(cfg.SessionSecret, 10*time.Minute)
		logger.Info("Google sign-in enabled", "redirect_url", cfg.GoogleRedirectURL)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, opts)
	srv.ReadTimeout = cfg.ReadTimeout
	srv.WriteTimeout = cfg.WriteTimeout
	srv.IdleTimeout = cfg.IdleTimeout
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		m := srv.Metrics()
		logger.Info("Request totals",
			"requests", m.Requests,
			"suspicious", m.SuspiciousRequests,
			"rate_limited", m.RateLimited)
	}()

	logger.Info("Starting budget server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-stopped
	logger.Info("Server stopped gracefully")
}
