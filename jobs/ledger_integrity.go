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

// LedgerIntegrityJob compares cached apartment balances against a fold of the
// ledger, and reports mills totals that drifted off nominal. With Fix set it
// rewrites the cached projections; the ledger itself is never touched.
type LedgerIntegrityJob struct {
	Buildings *building.Service
	Ledger    *ledger.Service
	Guard     *shared.IdempotencyStore
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// NewLedgerIntegrityJob initialises the integrity handler. Guard may be nil;
// when set, the scan also prunes stale idempotency keys.
func NewLedgerIntegrityJob(buildings *building.Service, svc *ledger.Service, guard *shared.IdempotencyStore, logger *slog.Logger, metrics *observability.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Buildings: buildings,
		Ledger:    svc,
		Guard:     guard,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// chargeKeyRetention keeps charge idempotency keys long enough to cover any
// realistic retroactive re-run before Cleanup removes them.
const chargeKeyRetention = 90 * 24 * time.Hour

// Handle executes the integrity scan.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityCheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	buildings, err := j.Buildings.ListBuildings(ctx)
	if err != nil {
		j.Metrics.ObserveJob(TaskIntegrityCheck, "error")
		return err
	}

	j.Logger.Info("starting ledger integrity scan",
		slog.Int("buildings", len(buildings)),
		slog.Bool("fix", payload.Fix))

	var warnings, drifted, fixed int
	for _, b := range buildings {
		ws, checks, err := j.Ledger.ReconcileReport(ctx, b.ID)
		if err != nil {
			j.Metrics.ObserveJob(TaskIntegrityCheck, "error")
			return err
		}
		warnings += len(ws)
		drifted += len(checks)

		if millsWarning, err := j.Buildings.AuditMills(ctx, b.ID); err == nil && millsWarning != nil {
			warnings++
		}

		if payload.Fix && len(checks) > 0 {
			n, err := j.Ledger.ReconcileFix(ctx, b.ID)
			if err != nil {
				j.Metrics.ObserveJob(TaskIntegrityCheck, "error")
				return err
			}
			fixed += n
		}
	}

	var pruned int64
	if j.Guard != nil {
		pruned, err = j.Guard.Cleanup(ctx, chargeKeyRetention)
		if err != nil {
			j.Logger.Warn("idempotency key cleanup", slog.Any("error", err))
		}
	}

	j.Metrics.ObserveJob(TaskIntegrityCheck, "ok")
	j.Logger.Info("completed ledger integrity scan",
		slog.Int("warnings", warnings),
		slog.Int("drifted", drifted),
		slog.Int("fixed", fixed),
		slog.Int64("pruned_keys", pruned))
	return nil
}
