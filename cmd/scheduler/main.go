package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telecompm_backend/internal/adapters"
	"telecompm_backend/internal/email"
	engrepo "telecompm_backend/internal/engineers/repository"
	engservice "telecompm_backend/internal/engineers/service"
	"telecompm_backend/internal/events"
	"telecompm_backend/internal/notification"
	"telecompm_backend/internal/scheduler"
	sitesrepo "telecompm_backend/internal/sites/repository"
	sitesservice "telecompm_backend/internal/sites/service"
	"telecompm_backend/platform/config"
	"telecompm_backend/platform/db"
	"telecompm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg, log)

	// Worker-side notification wiring so low stock alerts raised during scans
	// reach the ops mailbox (no HTTP handlers required).
	sitesSvc := sitesservice.New(sitesrepo.New(pool), log)
	engineersSvc := engservice.New(engrepo.New(pool), adapters.NewSiteCatalogAdapter(sitesSvc), eventBus, log)
	notificationModule := notification.New(pool, sender,
		adapters.NewEngineerDirectoryAdapter(engineersSvc),
		adapters.NewSiteCodeAdapter(sitesSvc), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()
	go runLowStockTicker(ctx, client, cfg.GetLowStockScanInterval(), log)

	worker, err := scheduler.NewWorker(cfg, pool, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

// runLowStockTicker enqueues a full stock scan on a fixed interval. One scan
// is enqueued immediately on startup so a restart never skips a cycle.
func runLowStockTicker(ctx context.Context, client *scheduler.Client, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}

	enqueue := func() {
		if err := client.EnqueueLowStockScanAll(ctx); err != nil {
			log.Error("failed to enqueue low stock scan", "error", err)
			return
		}
		log.Info("low stock scan enqueued")
	}

	enqueue()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueue()
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
