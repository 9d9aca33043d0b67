package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/shared"
)

// PeriodSums provides the expense and payment totals the rollup needs.
type PeriodSums interface {
	SumExpensesBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error)
	SumExpensesInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error)
	SumPaymentsBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error)
	SumPaymentsInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error)
}

// Rollup computes and stores the monthly snapshot for a building and period.
// previous_obligations comes from the prior month's carry_forward when that
// row exists, otherwise from a raw sum of history before the period start.
// carry_forward only ever propagates a debt: an overpaying building rolls
// forward zero, its credit stays on the apartment balances.
func (s *Service) Rollup(ctx context.Context, sums PeriodSums, b *building.Building, period shared.Month) (*MonthlyBalance, error) {
	start, end := period.Start(), period.End()

	totalExpenses, err := sums.SumExpensesInPeriod(ctx, b.ID, start, end)
	if err != nil {
		return nil, err
	}
	totalPayments, err := sums.SumPaymentsInPeriod(ctx, b.ID, start, end)
	if err != nil {
		return nil, err
	}

	previous, err := s.previousObligations(ctx, sums, b.ID, period)
	if err != nil {
		return nil, err
	}

	carry := totalExpenses.Add(previous).Sub(totalPayments)
	if carry.IsNegative() {
		carry = decimal.Zero
	}

	reserve, err := b.ReserveFundMonthly()
	if err != nil {
		return nil, err
	}
	outstanding, err := s.HasOutstandingObligations(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if outstanding {
		reserve = decimal.Zero
	}

	mb := MonthlyBalance{
		BuildingID:          b.ID,
		Year:                period.Year,
		Month:               int(period.Month),
		TotalExpenses:       shared.Round2(totalExpenses),
		TotalPayments:       shared.Round2(totalPayments),
		PreviousObligations: shared.Round2(previous),
		ReserveFundAmount:   reserve,
		ManagementFees:      shared.Round2(b.ManagementFeePerApartment.Mul(decimal.NewFromInt(int64(b.ApartmentCount)))),
		CarryForward:        shared.Round2(carry),
	}
	stored, err := s.repo.UpsertMonthlyBalance(ctx, mb)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("monthly balance rolled up",
			slog.Int64("building_id", b.ID),
			slog.String("period", period.Key()),
			slog.String("carry_forward", stored.CarryForward.StringFixed(2)))
	}
	return stored, nil
}

func (s *Service) previousObligations(ctx context.Context, sums PeriodSums, buildingID int64, period shared.Month) (decimal.Decimal, error) {
	prev := period.Prev()
	row, err := s.repo.GetMonthlyBalance(ctx, buildingID, prev.Year, int(prev.Month))
	if err != nil {
		return decimal.Zero, err
	}
	if row != nil {
		return row.CarryForward, nil
	}
	// Raw fallback when the chain has a gap: everything billed before the
	// period start minus everything paid before it.
	expenses, err := sums.SumExpensesBefore(ctx, buildingID, period.Start())
	if err != nil {
		return decimal.Zero, err
	}
	payments, err := sums.SumPaymentsBefore(ctx, buildingID, period.Start())
	if err != nil {
		return decimal.Zero, err
	}
	diff := expenses.Sub(payments)
	if diff.IsNegative() {
		// Keep the chain on the same debt-only footing as carry_forward.
		return decimal.Zero, nil
	}
	return diff, nil
}
