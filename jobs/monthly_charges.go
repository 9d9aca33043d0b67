package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/oikos-digital/oikos/internal/observability"
	"github.com/oikos-digital/oikos/internal/schedule"
	"github.com/oikos-digital/oikos/internal/shared"
)

// MonthlyChargesJob runs the charge scheduler across every building. It is
// registered on a first-of-month cron and can also be enqueued on demand.
type MonthlyChargesJob struct {
	Scheduler *schedule.Service
	Client    *Client
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	clock     func() time.Time
}

// NewMonthlyChargesJob initialises the monthly charges handler.
func NewMonthlyChargesJob(scheduler *schedule.Service, client *Client, logger *slog.Logger, metrics *observability.Metrics) *MonthlyChargesJob {
	return &MonthlyChargesJob{
		Scheduler: scheduler,
		Client:    client,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the monthly charges run.
func (j *MonthlyChargesJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Scheduler == nil {
		return errors.New("monthly charges: handler not configured")
	}
	var payload MonthlyChargesPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	period := shared.MonthOf(j.clock())
	if payload.Month != "" {
		parsed, err := shared.ParseMonth(payload.Month)
		if err != nil {
			return asynq.SkipRetry
		}
		period = parsed
	}

	logger := j.Logger.With(
		slog.String("period", period.Key()),
		slog.Bool("dry_run", payload.DryRun),
	)
	logger.Info("starting monthly charges run")

	summary, err := j.Scheduler.RunAll(ctx, period, payload.DryRun)
	if err != nil {
		j.Metrics.ObserveJob(TaskMonthlyCharges, "error")
		logger.Error("monthly charges run failed", slog.Any("error", err))
		return err
	}

	j.Metrics.ObserveJob(TaskMonthlyCharges, "ok")
	for _, report := range summary.Reports {
		switch {
		case report.Failed:
			j.Metrics.ObserveBillingRun("failed", 0)
		case report.Created > 0:
			j.Metrics.ObserveBillingRun("created", report.Created)
		default:
			j.Metrics.ObserveBillingRun("skipped", 0)
		}
		if report.Created > 0 && !report.DryRun {
			j.enqueueNotification(ctx, report)
		}
	}

	logger.Info("completed monthly charges run",
		slog.Int("created", summary.Created),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)
	return nil
}

func (j *MonthlyChargesJob) enqueueNotification(ctx context.Context, report schedule.MonthReport) {
	if j.Client == nil {
		return
	}
	amounts := make(map[string]string, len(report.Amounts))
	for kind, amount := range report.Amounts {
		amounts[kind] = amount.StringFixed(2)
	}
	payload := NotifyChargesPayload{
		BuildingID: report.BuildingID,
		Month:      report.PeriodKey,
		Created:    report.Created,
		Amounts:    amounts,
	}
	if _, err := j.Client.EnqueueNotifyCharges(ctx, payload); err != nil {
		j.Logger.Warn("enqueue charge notification",
			slog.Int64("building_id", report.BuildingID),
			slog.Any("error", err))
	}
}
