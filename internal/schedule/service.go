package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/shared"
)

// ObligationSource answers whether a building has apartments in arrears.
type ObligationSource interface {
	HasOutstandingObligations(ctx context.Context, buildingID int64) (bool, error)
}

// Locker serialises charge creation per building/period.
type Locker interface {
	Acquire(ctx context.Context, buildingID int64, period shared.Month) (func(context.Context) error, error)
}

// IdempotencyGuard records processed charge keys across processes.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service creates the recurring monthly charges. Every month is independently
// guarded: re-running a month is a no-op reported as skipped, and one failed
// month never aborts a batch.
type Service struct {
	buildings   building.RepositoryPort
	charges     ChargeRepositoryPort
	obligations ObligationSource
	lock        Locker
	guard       IdempotencyGuard
	audit       *shared.AuditLogger
	logger      *slog.Logger
}

// NewService builds Service instance. Lock, guard and audit may be nil; the
// database guard row remains the hard duplicate protection.
func NewService(buildings building.RepositoryPort, charges ChargeRepositoryPort, obligations ObligationSource, lock Locker, guard IdempotencyGuard, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		buildings:   buildings,
		charges:     charges,
		obligations: obligations,
		lock:        lock,
		guard:       guard,
		audit:       audit,
		logger:      logger,
	}
}

// CreateMonthlyCharges ensures the management fee and reserve fund charges
// exist for one building and month. Dry runs compute the identical amounts
// without writing anything.
func (s *Service) CreateMonthlyCharges(ctx context.Context, buildingID int64, period shared.Month, dryRun bool) (MonthReport, error) {
	report := MonthReport{
		BuildingID: buildingID,
		Period:     period,
		PeriodKey:  period.Key(),
		DryRun:     dryRun,
		Amounts:    make(map[string]decimal.Decimal),
	}

	b, err := s.buildings.GetBuilding(ctx, buildingID)
	if err != nil {
		return s.failed(report, err), err
	}
	if period.Start().Before(shared.MonthOf(b.FinancialSystemStart).Start()) {
		report.Skipped++
		report.Error = "period precedes financial system start"
		return report, nil
	}
	apartments, err := s.buildings.ListApartments(ctx, buildingID)
	if err != nil {
		return s.failed(report, err), err
	}
	if len(apartments) == 0 {
		err := shared.NewConfigurationError(buildingID, "no apartments registered")
		return s.failed(report, err), err
	}

	if !dryRun && s.lock != nil {
		release, err := s.lock.Acquire(ctx, buildingID, period)
		if errors.Is(err, shared.ErrBillingLocked) {
			report.Skipped++
			report.Error = "concurrent billing run holds the lock"
			return report, nil
		}
		if err != nil {
			return s.failed(report, err), err
		}
		defer func() { _ = release(context.WithoutCancel(ctx)) }()
	}

	if err := s.ensureManagementFee(ctx, b, apartments, period, dryRun, &report); err != nil {
		return s.failed(report, err), err
	}
	if err := s.ensureReserveFund(ctx, b, apartments, period, dryRun, &report); err != nil {
		return s.failed(report, err), err
	}

	if !dryRun && report.Created > 0 && s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "charges.create",
			Entity:   "building",
			EntityID: fmt.Sprintf("%d", buildingID),
			Meta: map[string]any{
				"period":  period.Key(),
				"created": report.Created,
				"skipped": report.Skipped,
			},
			At: time.Now().UTC(),
		})
	}
	return report, nil
}

func (s *Service) ensureManagementFee(ctx context.Context, b *building.Building, apartments []building.Apartment, period shared.Month, dryRun bool, report *MonthReport) error {
	fee := shared.Round2(b.ManagementFeePerApartment)
	if !fee.IsPositive() {
		return nil
	}
	report.Amounts[string(KindManagementFee)] = fee.Mul(decimal.NewFromInt(int64(len(apartments))))

	lines := make([]ChargeLine, 0, len(apartments))
	for _, apt := range apartments {
		// Flat fee, identical for each apartment.
		lines = append(lines, ChargeLine{ApartmentID: apt.ID, Number: apt.Number, Amount: fee})
	}
	return s.createKind(ctx, b.ID, period, KindManagementFee, lines, dryRun, report)
}

func (s *Service) ensureReserveFund(ctx context.Context, b *building.Building, apartments []building.Apartment, period shared.Month, dryRun bool, report *MonthReport) error {
	monthly, err := b.ReserveFundMonthly()
	if err != nil {
		return err
	}
	if !monthly.IsPositive() {
		return nil
	}
	outstanding, err := s.obligations.HasOutstandingObligations(ctx, b.ID)
	if err != nil {
		return err
	}
	if outstanding {
		// No savings while apartments are in arrears; the whole contribution
		// is suspended, not reduced.
		report.Skipped++
		if s.logger != nil {
			s.logger.Info("reserve fund suspended, outstanding obligations",
				slog.Int64("building_id", b.ID), slog.String("period", period.Key()))
		}
		return nil
	}
	weights, err := building.ResolveWeights(apartments, building.BasisParticipation, s.logger)
	if err != nil {
		return err
	}
	if weights.Degraded {
		report.Skipped++
		return nil
	}
	report.Amounts[string(KindReserveFund)] = monthly

	shares := weights.Allocate(apartments, monthly)
	lines := make([]ChargeLine, 0, len(apartments))
	for _, apt := range apartments {
		lines = append(lines, ChargeLine{
			ApartmentID: apt.ID,
			Number:      apt.Number,
			Amount:      shares[apt.ID],
		})
	}
	return s.createKind(ctx, b.ID, period, KindReserveFund, lines, dryRun, report)
}

func (s *Service) createKind(ctx context.Context, buildingID int64, period shared.Month, kind ChargeKind, lines []ChargeLine, dryRun bool, report *MonthReport) error {
	exists, err := s.charges.HasCharges(ctx, buildingID, period, kind)
	if err != nil {
		return err
	}
	if exists {
		report.Skipped++
		if s.logger != nil {
			s.logger.Info("monthly charge already exists",
				slog.Int64("building_id", buildingID),
				slog.String("period", period.Key()),
				slog.String("kind", string(kind)))
		}
		return nil
	}
	if dryRun {
		report.Created += len(lines)
		return nil
	}

	key := shared.ChargeKey(buildingID, period, string(kind))
	if s.guard != nil {
		if err := s.guard.CheckAndInsert(ctx, key, "schedule"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				report.Skipped++
				return nil
			}
			return err
		}
	}
	created, err := s.charges.CreateCharges(ctx, buildingID, period, kind, lines)
	if errors.Is(err, shared.ErrAlreadyCharged) {
		report.Skipped++
		return nil
	}
	if err != nil {
		if s.guard != nil {
			_ = s.guard.Delete(ctx, key)
		}
		return err
	}
	report.Created += created
	return nil
}

func (s *Service) failed(report MonthReport, err error) MonthReport {
	report.Failed = true
	report.Error = err.Error()
	if s.logger != nil {
		s.logger.Error("monthly charge creation failed",
			slog.Int64("building_id", report.BuildingID),
			slog.String("period", report.PeriodKey),
			slog.Any("error", err))
	}
	return report
}

// Retroactive creates charges for every month from the building's financial
// system start up to and including target. Failed months are recorded and the
// run continues.
func (s *Service) Retroactive(ctx context.Context, buildingID int64, target shared.Month, dryRun bool) (RunSummary, error) {
	b, err := s.buildings.GetBuilding(ctx, buildingID)
	if err != nil {
		return RunSummary{}, err
	}
	first := shared.MonthOf(b.FinancialSystemStart)
	var summary RunSummary
	for _, m := range shared.MonthsBetween(first, target) {
		report, err := s.CreateMonthlyCharges(ctx, buildingID, m, dryRun)
		if err != nil {
			// Already folded into the report; keep going.
			_ = err
		}
		summary.add(report)
	}
	return summary, nil
}

// Future creates charges for the n months following from.
func (s *Service) Future(ctx context.Context, buildingID int64, from shared.Month, n int, dryRun bool) (RunSummary, error) {
	var summary RunSummary
	month := from
	for i := 0; i < n; i++ {
		month = month.Next()
		report, err := s.CreateMonthlyCharges(ctx, buildingID, month, dryRun)
		if err != nil {
			_ = err
		}
		summary.add(report)
	}
	return summary, nil
}

// RunAll creates the period's charges for every building. Buildings are
// independent, so they run concurrently with a bounded group; a failure in one
// building is recorded in its report and does not stop the others.
func (s *Service) RunAll(ctx context.Context, period shared.Month, dryRun bool) (RunSummary, error) {
	buildings, err := s.buildings.ListBuildings(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	var (
		mu      sync.Mutex
		summary RunSummary
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range buildings {
		g.Go(func() error {
			report, err := s.CreateMonthlyCharges(ctx, b.ID, period, dryRun)
			if err != nil {
				_ = err
			}
			mu.Lock()
			summary.add(report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

// CreateSchedule expands and stores a maintenance contract's payment plan.
func (s *Service) CreateSchedule(ctx context.Context, ps PaymentSchedule) (*PaymentSchedule, []expense.Expense, error) {
	expenses, err := ExpandSchedule(ps)
	if err != nil {
		return nil, nil, err
	}
	stored, err := s.charges.InsertSchedule(ctx, ps, expenses)
	if err != nil {
		return nil, nil, err
	}
	return stored, expenses, nil
}
