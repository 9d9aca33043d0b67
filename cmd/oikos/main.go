package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/oikos-digital/oikos/cmd/oikos/cli"
	"github.com/oikos-digital/oikos/internal/app"
	"github.com/oikos-digital/oikos/internal/billing"
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
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "create_monthly_charges", "reconcile", "jobs":
			os.Exit(runCommand(os.Args[1], os.Args[2:]))
		}
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	auditLogger := shared.NewAuditLogger(pool)

	buildingRepo := building.NewRepository(pool)
	buildingService := building.NewService(buildingRepo, logger)
	buildingHandler := building.NewHandler(logger, buildingService)

	expenseRepo := expense.NewRepository(pool)
	expenseService := expense.NewService(expenseRepo)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	billingRepo := billing.NewRepository(pool)
	calculator := billing.NewCalculator(buildingRepo, expenseService, ledgerService, logger)
	summaryCache := billing.NewSummaryCache(redisClient, cfg.SummaryCacheTTL)
	billingService := billing.NewService(calculator, billingRepo, summaryCache, auditLogger, logger)
	summaryService := billing.NewSummaryService(buildingRepo, billingRepo, summaryCache, logger)
	billingHandler := billing.NewHandler(logger, billingService, summaryService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		BuildingHandler: buildingHandler,
		LedgerHandler:   ledgerHandler,
		BillingHandler:  billingHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runCommand executes one management command and returns its exit code.
func runCommand(name string, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: load config: %v\n", name, err)
		return 1
	}
	logger := app.NewLogger(cfg)

	switch name {
	case "jobs":
		return runJobsCommand(ctx, cfg, args)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: connect postgres: %v\n", name, err)
		return 1
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, continuing degraded", slog.Any("error", err))
	}
	defer func() { _ = redisClient.Close() }()

	buildingRepo := building.NewRepository(pool)
	buildingService := building.NewService(buildingRepo, logger)
	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, logger)

	switch name {
	case "create_monthly_charges":
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		month := fs.String("month", "", "target month (YYYY-MM), defaults to the current month")
		buildingID := fs.Int64("building", 0, "limit the run to one building")
		retroactive := fs.Bool("retroactive", false, "fill every missing month up to the target")
		futureMonths := fs.Int("future-months", 0, "also create charges for the next N months")
		dryRun := fs.Bool("dry-run", false, "report what would be created without writing")
		jsonOut := fs.Bool("json", false, "emit JSON output")
		if err := fs.Parse(args); err != nil {
			return 1
		}

		lock := shared.NewBillingLock(redisClient, cfg.BillingLockTTL)
		guard := shared.NewIdempotencyStore(pool)
		auditLogger := shared.NewAuditLogger(pool)
		chargeRepo := schedule.NewRepository(pool)
		scheduler := schedule.NewService(buildingRepo, chargeRepo, ledgerService, lock, guard, auditLogger, logger)

		return cli.NewChargesCLI(scheduler).Run(ctx, cli.ChargesOptions{
			Month:        *month,
			BuildingID:   *buildingID,
			Retroactive:  *retroactive,
			FutureMonths: *futureMonths,
			DryRun:       *dryRun,
			JSONOutput:   *jsonOut,
		})
	case "reconcile":
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		buildingID := fs.Int64("building", 0, "limit the scan to one building")
		fix := fs.Bool("fix", false, "rewrite drifted cached balances from the ledger")
		jsonOut := fs.Bool("json", false, "emit JSON output")
		if err := fs.Parse(args); err != nil {
			return 1
		}
		return cli.NewReconcileCLI(buildingService, ledgerService).Run(ctx, cli.ReconcileOptions{
			BuildingID: *buildingID,
			Fix:        *fix,
			JSONOutput: *jsonOut,
		})
	}
	return 1
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	trigger := fs.String("trigger", "", "enqueue a job by task name")
	inspect := fs.Bool("inspect", false, "print queue statistics")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()

	if *trigger != "" {
		info, err := jobsCLI.Trigger(ctx, *trigger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", *trigger, info.ID, info.Queue)
		return 0
	}
	if *inspect {
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	}
	fs.Usage()
	return 1
}
