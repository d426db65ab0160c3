package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/stockbar/stockbar/internal/app"
	"github.com/stockbar/stockbar/internal/masterdata/products"
	"github.com/stockbar/stockbar/internal/platform/db"
	"github.com/stockbar/stockbar/internal/shared"
	"github.com/stockbar/stockbar/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)
	idemStore := shared.NewIdempotencyStore(pool)

	productsService := products.NewService(products.NewRepository(pool), auditLogger)

	cleanupJob := jobs.NewIdempotencyCleanupJob(idemStore, logger)
	stockScanJob := jobs.NewLowStockScanJob(productsService, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: stockScanJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every 1h", Task: jobs.NewIdempotencyCleanupTask()},
			{Spec: "@every 30m", Task: jobs.NewLowStockScanTask()},
		},
	})
	if err != nil {
		logger.Error("worker setup failed", "error", err)
		os.Exit(1)
	}

	logger.Info("worker starting", "redis", cfg.RedisAddr)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
