package scheduler

import (
	"context"
	"fmt"

	"telecompm_backend/internal/events"
	"telecompm_backend/internal/materials/repository"
	"telecompm_backend/platform/config"
	"telecompm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// officeScanParallelism caps concurrent per-office scans so a large office
// roster doesn't exhaust the connection pool.
const officeScanParallelism = 4

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   repository.Repository
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   repository.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskLowStockScanAll, w.handleLowStockScanAll)
	mux.HandleFunc(TaskLowStockScanOffice, w.handleLowStockScanOffice)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLowStockScanAll(ctx context.Context, _ *asynq.Task) error {
	officeIDs, err := w.repo.ListOfficeIDs(ctx)
	if err != nil {
		return err
	}
	if len(officeIDs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(officeScanParallelism)
	for _, officeID := range officeIDs {
		g.Go(func() error {
			return w.scanOffice(gctx, officeID)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.log.Info("low stock scan completed", "offices", len(officeIDs))
	return nil
}

func (w *Worker) handleLowStockScanOffice(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLowStockScanOfficePayload(task)
	if err != nil {
		return err
	}

	officeID, err := uuid.Parse(payload.OfficeID)
	if err != nil {
		return err
	}

	return w.scanOffice(ctx, officeID)
}

// scanOffice re-raises a LowStockAlert for every material still at or below
// its threshold, so restock reminders keep flowing until someone acts.
func (w *Worker) scanOffice(ctx context.Context, officeID uuid.UUID) error {
	materials, err := w.repo.FindLowStock(ctx, officeID)
	if err != nil {
		return fmt.Errorf("scan office %s: %w", officeID, err)
	}
	if w.bus == nil {
		return nil
	}

	for _, m := range materials {
		if err := w.bus.PublishSync(ctx, events.LowStockAlert{
			BaseEvent:    events.NewBaseEvent(),
			MaterialID:   m.ID,
			MaterialName: m.Name,
			OfficeID:     m.OfficeID,
			CurrentStock: m.CurrentStock.Value,
			MinimumStock: m.MinimumStock.Value,
			Unit:         m.CurrentStock.Unit,
		}); err != nil {
			return err
		}
	}

	if len(materials) > 0 {
		w.log.Info("low stock materials found", "officeId", officeID, "count", len(materials))
	}
	return nil
}
