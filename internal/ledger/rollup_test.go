package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/shared"
)

// fakeSums returns fixed totals per period key.
type fakeSums struct {
	expensesInPeriod map[string]decimal.Decimal
	paymentsInPeriod map[string]decimal.Decimal
	expensesBefore   decimal.Decimal
	paymentsBefore   decimal.Decimal
}

func (f *fakeSums) SumExpensesBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error) {
	return f.expensesBefore, nil
}

func (f *fakeSums) SumExpensesInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error) {
	return f.expensesInPeriod[from.Format("2006-01")], nil
}

func (f *fakeSums) SumPaymentsBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error) {
	return f.paymentsBefore, nil
}

func (f *fakeSums) SumPaymentsInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error) {
	return f.paymentsInPeriod[from.Format("2006-01")], nil
}

func rollupBuilding() *building.Building {
	return &building.Building{
		ID:                        1,
		ApartmentCount:            3,
		ManagementFeePerApartment: decimal.NewFromInt(10),
	}
}

func TestRollupCarryForwardChains(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	sums := &fakeSums{
		expensesInPeriod: map[string]decimal.Decimal{
			"2025-01": decimal.NewFromInt(500),
			"2025-02": decimal.NewFromInt(400),
		},
		paymentsInPeriod: map[string]decimal.Decimal{
			"2025-01": decimal.NewFromInt(300),
			"2025-02": decimal.NewFromInt(650),
		},
	}

	jan, err := svc.Rollup(context.Background(), sums, rollupBuilding(), shared.Month{Year: 2025, Month: time.January})
	require.NoError(t, err)
	require.Equal(t, "200.00", jan.CarryForward.StringFixed(2))

	feb, err := svc.Rollup(context.Background(), sums, rollupBuilding(), shared.Month{Year: 2025, Month: time.February})
	require.NoError(t, err)
	// previous_obligations of February equals January's carry_forward.
	require.Equal(t, "200.00", feb.PreviousObligations.StringFixed(2))
	// 400 + 200 - 650 = -50, clamped to zero: credit never carries forward.
	require.Equal(t, "0.00", feb.CarryForward.StringFixed(2))
}

func TestRollupRawFallbackWithoutPriorRow(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	sums := &fakeSums{
		expensesInPeriod: map[string]decimal.Decimal{"2025-03": decimal.NewFromInt(100)},
		paymentsInPeriod: map[string]decimal.Decimal{"2025-03": decimal.NewFromInt(20)},
		expensesBefore:   decimal.NewFromInt(900),
		paymentsBefore:   decimal.NewFromInt(750),
	}

	mb, err := svc.Rollup(context.Background(), sums, rollupBuilding(), shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "150.00", mb.PreviousObligations.StringFixed(2))
	require.Equal(t, "230.00", mb.CarryForward.StringFixed(2))
}

func TestRollupRawFallbackClampsCredit(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	sums := &fakeSums{
		expensesInPeriod: map[string]decimal.Decimal{"2025-03": decimal.NewFromInt(100)},
		paymentsInPeriod: map[string]decimal.Decimal{"2025-03": decimal.Zero},
		expensesBefore:   decimal.NewFromInt(500),
		paymentsBefore:   decimal.NewFromInt(800),
	}

	mb, err := svc.Rollup(context.Background(), sums, rollupBuilding(), shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "0.00", mb.PreviousObligations.StringFixed(2))
	require.Equal(t, "100.00", mb.CarryForward.StringFixed(2))
}

func TestRollupManagementFees(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	sums := &fakeSums{
		expensesInPeriod: map[string]decimal.Decimal{},
		paymentsInPeriod: map[string]decimal.Decimal{},
	}

	mb, err := svc.Rollup(context.Background(), sums, rollupBuilding(), shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "30.00", mb.ManagementFees.StringFixed(2))
}

func TestRollupReserveSuppressedWhileInDebt(t *testing.T) {
	repo := newMemoryLedgerRepo()
	b := rollupBuilding()
	b.ReserveFundGoal = decimal.NewFromInt(1200)
	b.ReserveFundDurationMonths = 12
	svc := NewService(repo, nil)
	sums := &fakeSums{
		expensesInPeriod: map[string]decimal.Decimal{},
		paymentsInPeriod: map[string]decimal.Decimal{},
	}

	mb, err := svc.Rollup(context.Background(), sums, b, shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "100.00", mb.ReserveFundAmount.StringFixed(2))

	_, err = repo.AppendTransaction(context.Background(), Transaction{
		BuildingID: 1, ApartmentID: 10, Type: EntryExpenseIssued, Amount: decimal.NewFromInt(50), Date: time.Now(),
	})
	require.NoError(t, err)

	mb, err = svc.Rollup(context.Background(), sums, b, shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "0.00", mb.ReserveFundAmount.StringFixed(2))
}

func TestRollupUpsertIsIdempotent(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	sums := &fakeSums{
		expensesInPeriod: map[string]decimal.Decimal{"2025-03": decimal.NewFromInt(100)},
		paymentsInPeriod: map[string]decimal.Decimal{},
	}

	_, err := svc.Rollup(context.Background(), sums, rollupBuilding(), shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	_, err = svc.Rollup(context.Background(), sums, rollupBuilding(), shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)

	rows, err := repo.ListMonthlyBalances(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
