package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/oikos-digital/oikos/internal/app"
	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/ledger"
	"github.com/oikos-digital/oikos/internal/observability"
	"github.com/oikos-digital/oikos/internal/platform/cache"
	"github.com/oikos-digital/oikos/internal/platform/db"
	"github.com/oikos-digital/oikos/internal/schedule"
	"github.com/oikos-digital/oikos/internal/shared"
	"github.com/oikos-digital/oikos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, continuing degraded", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	buildingRepo := building.NewRepository(pool)
	buildingService := building.NewService(buildingRepo, logger)
	expenseRepo := expense.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, logger)

	lock := shared.NewBillingLock(redisClient, cfg.BillingLockTTL)
	guard := shared.NewIdempotencyStore(pool)
	chargeRepo := schedule.NewRepository(pool)
	scheduler := schedule.NewService(buildingRepo, chargeRepo, ledgerService, lock, guard, auditLogger, logger)

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	chargesJob := jobs.NewMonthlyChargesJob(scheduler, client, logger, metrics)
	rollupJob := jobs.NewLedgerRollupJob(buildingRepo, expenseRepo, ledgerService, logger, metrics)
	integrityJob := jobs.NewLedgerIntegrityJob(buildingService, ledgerService, guard, logger, metrics)

	chargesTask, err := jobs.NewMonthlyChargesTask(jobs.MonthlyChargesPayload{})
	if err != nil {
		logger.Error("build charges task", slog.Any("error", err))
		os.Exit(1)
	}
	rollupTask, err := jobs.NewLedgerRollupTask(jobs.LedgerRollupPayload{})
	if err != nil {
		logger.Error("build rollup task", slog.Any("error", err))
		os.Exit(1)
	}
	integrityTask, err := jobs.NewIntegrityCheckTask(jobs.IntegrityCheckPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMonthlyCharges, Handler: chargesJob.Handle},
			{Type: jobs.TaskLedgerRollup, Handler: rollupJob.Handle},
			{Type: jobs.TaskIntegrityCheck, Handler: integrityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.MonthlyChargesCron, Task: chargesTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.RollupCron, Task: rollupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.IntegrityCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
