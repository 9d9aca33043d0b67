package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/ledger"
	"github.com/oikos-digital/oikos/internal/observability"
	"github.com/oikos-digital/oikos/internal/shared"
)

// LedgerRollupJob folds a closed month into monthly balance rows for every
// building. By default it targets the month before the run time, so the cron
// on the first of the month closes the month that just ended.
type LedgerRollupJob struct {
	Buildings building.RepositoryPort
	Sums      ledger.PeriodSums
	Ledger    *ledger.Service
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	clock     func() time.Time
}

// NewLedgerRollupJob initialises the rollup handler.
func NewLedgerRollupJob(buildings building.RepositoryPort, sums ledger.PeriodSums, svc *ledger.Service, logger *slog.Logger, metrics *observability.Metrics) *LedgerRollupJob {
	return &LedgerRollupJob{
		Buildings: buildings,
		Sums:      sums,
		Ledger:    svc,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the rollup across all buildings.
func (j *LedgerRollupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger rollup: handler not configured")
	}
	var payload LedgerRollupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	period := shared.MonthOf(j.clock()).Prev()
	if payload.Month != "" {
		parsed, err := shared.ParseMonth(payload.Month)
		if err != nil {
			return asynq.SkipRetry
		}
		period = parsed
	}

	buildings, err := j.Buildings.ListBuildings(ctx)
	if err != nil {
		j.Metrics.ObserveJob(TaskLedgerRollup, "error")
		return err
	}

	logger := j.Logger.With(slog.String("period", period.Key()))
	logger.Info("starting balance rollup", slog.Int("buildings", len(buildings)))

	var failed int
	for i := range buildings {
		b := &buildings[i]
		if b.FinancialSystemStart.IsZero() || period.End().Before(b.FinancialSystemStart) {
			continue
		}
		if _, err := j.Ledger.Rollup(ctx, j.Sums, b, period); err != nil {
			failed++
			logger.Error("rollup failed",
				slog.Int64("building_id", b.ID),
				slog.Any("error", err))
		}
	}

	if failed > 0 {
		j.Metrics.ObserveJob(TaskLedgerRollup, "error")
		logger.Warn("balance rollup finished with failures", slog.Int("failed", failed))
		return errors.New("ledger rollup: some buildings failed")
	}
	j.Metrics.ObserveJob(TaskLedgerRollup, "ok")
	logger.Info("completed balance rollup")
	return nil
}
