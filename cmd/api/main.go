package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telecompm_backend/internal/adapters"
	"telecompm_backend/internal/adapters/storage"
	"telecompm_backend/internal/auth"
	"telecompm_backend/internal/email"
	"telecompm_backend/internal/engineers"
	"telecompm_backend/internal/events"
	apphttp "telecompm_backend/internal/http"
	"telecompm_backend/internal/http/router"
	"telecompm_backend/internal/materials"
	"telecompm_backend/internal/notification"
	"telecompm_backend/internal/sites"
	"telecompm_backend/internal/visits"
	visitdomain "telecompm_backend/internal/visits/domain"
	"telecompm_backend/platform/config"
	"telecompm_backend/platform/db"
	"telecompm_backend/platform/lock"
	"telecompm_backend/platform/logger"
	"telecompm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Per-aggregate locks serialize stock and visit mutations. Redis-backed
	// when REDIS_URL is set so multiple API instances can share them.
	locks, closeLocks := initLocks(cfg, log)
	if closeLocks != nil {
		defer closeLocks()
	}

	sender := email.NewSender(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage service for visit photo evidence (MinIO)
	store, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure photo bucket", 5, 2*time.Second, func() error {
		return store.EnsureBucket(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "bucket", cfg.GetMinioBucketVisitPhotos())

	policy, err := visitdomain.LoadPolicy(cfg.GetVisitPolicyFile(), cfg.GetVisitMaxDuration())
	if err != nil {
		log.Error("failed to load visit policy", "error", err)
		panic("failed to load visit policy: " + err.Error())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	sitesModule := sites.NewModule(pool, val, log)
	materialsModule := materials.NewModule(pool, locks, eventBus, val, log)

	siteCatalog := adapters.NewSiteCatalogAdapter(sitesModule.Service())
	engineersModule := engineers.NewModule(pool, siteCatalog, eventBus, val, log)

	authModule := auth.NewModule(engineersModule.Service(), cfg, val, log)

	siteDirectory := adapters.NewSiteDirectoryAdapter(sitesModule.Service())
	visitsModule := visits.NewModule(pool, locks, siteDirectory, materialsModule.Service(),
		store, eventBus, policy, val, log)

	// Notification module subscribes to domain events and serves the inbox
	engineerDirectory := adapters.NewEngineerDirectoryAdapter(engineersModule.Service())
	siteCodes := adapters.NewSiteCodeAdapter(sitesModule.Service())
	notificationModule := notification.New(pool, sender, engineerDirectory, siteCodes, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			sitesModule,
			materialsModule,
			engineersModule,
			visitsModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initLocks(cfg config.LockConfig, log *logger.Logger) (lock.KeyedLocker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Info("REDIS_URL not configured; using process-local locks")
		return lock.NewLocal(), nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Warn("invalid REDIS_URL; falling back to process-local locks", "error", err)
		return lock.NewLocal(), nil
	}

	client := redis.NewClient(opt)
	return lock.NewRedis(client, cfg.GetLockTTL()), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
