package expense

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/shared"
)

type memoryExpenseRepo struct {
	expenses []Expense
	payments []Payment
}

func (r *memoryExpenseRepo) ListUnissued(ctx context.Context, buildingID int64, from, to time.Time) ([]Expense, error) {
	var out []Expense
	for _, e := range r.expenses {
		if e.BuildingID != buildingID || e.IsIssued || e.ApartmentID != nil {
			continue
		}
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryExpenseRepo) SumExpensesBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range r.expenses {
		if e.BuildingID == buildingID && e.IsIssued && e.Date.Before(before) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *memoryExpenseRepo) SumExpensesInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range r.expenses {
		if e.BuildingID == buildingID && e.IsIssued && !e.Date.Before(from) && e.Date.Before(to) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *memoryExpenseRepo) SumPaymentsBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range r.payments {
		if p.BuildingID == buildingID && p.Date.Before(before) {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (r *memoryExpenseRepo) SumPaymentsInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range r.payments {
		if p.BuildingID == buildingID && !p.Date.Before(from) && p.Date.Before(to) {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func march(day int) time.Time {
	return time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC)
}

func TestAggregateRoutesByCategoryAndBasis(t *testing.T) {
	repo := &memoryExpenseRepo{expenses: []Expense{
		{ID: 1, BuildingID: 1, Amount: decimal.NewFromInt(100), Category: CategoryCleaning, Distribution: building.BasisParticipation, Date: march(3)},
		{ID: 2, BuildingID: 1, Amount: decimal.NewFromInt(80), Category: CategoryElevatorMaint, Distribution: building.BasisElevator, Date: march(5)},
		{ID: 3, BuildingID: 1, Amount: decimal.NewFromInt(2700), Category: CategoryHeatingFuel, Distribution: building.BasisHeating, Date: march(10)},
		{ID: 4, BuildingID: 1, Amount: decimal.NewFromInt(60), Category: CategoryOther, Distribution: building.BasisEqual, Date: march(12)},
		{ID: 5, BuildingID: 1, Amount: decimal.NewFromInt(45), Category: CategoryInsurance, Distribution: building.BasisSquareMeters, Date: march(20)},
		{ID: 6, BuildingID: 1, Amount: decimal.NewFromInt(30), Category: CategoryWaterCommon, Distribution: building.BasisParticipation, Date: march(25)},
	}}
	svc := NewService(repo)
	b := &building.Building{ID: 1, ApartmentCount: 3}

	buckets, err := svc.AggregateMonth(context.Background(), b, shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "130.00", buckets.General.StringFixed(2))
	require.Equal(t, "80.00", buckets.Elevator.StringFixed(2))
	require.Equal(t, "2700.00", buckets.Heating.StringFixed(2))
	require.Equal(t, "60.00", buckets.EqualShare.StringFixed(2))
	require.Equal(t, "45.00", buckets.CoOwnership.StringFixed(2))
	require.Equal(t, "3015.00", buckets.Total().StringFixed(2))
}

func TestAggregateHeatingFuelNeverLandsInGeneral(t *testing.T) {
	// Fuel marked with a non-heating distribution still routes to the
	// heating bucket; the category wins.
	repo := &memoryExpenseRepo{expenses: []Expense{
		{ID: 1, BuildingID: 1, Amount: decimal.NewFromInt(500), Category: CategoryHeatingFuel, Distribution: building.BasisParticipation, Date: march(4)},
	}}
	svc := NewService(repo)
	b := &building.Building{ID: 1, ApartmentCount: 2}

	buckets, err := svc.AggregateMonth(context.Background(), b, shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.True(t, buckets.General.IsZero())
	require.Equal(t, "500.00", buckets.Heating.StringFixed(2))
}

func TestAggregateExcludesIssuedAndOutOfPeriod(t *testing.T) {
	aptID := int64(7)
	repo := &memoryExpenseRepo{expenses: []Expense{
		{ID: 1, BuildingID: 1, Amount: decimal.NewFromInt(100), Category: CategoryCleaning, Distribution: building.BasisParticipation, Date: march(3), IsIssued: true},
		{ID: 2, BuildingID: 1, Amount: decimal.NewFromInt(50), Category: CategoryCleaning, Distribution: building.BasisParticipation, Date: march(3), ApartmentID: &aptID},
		{ID: 3, BuildingID: 1, Amount: decimal.NewFromInt(75), Category: CategoryCleaning, Distribution: building.BasisParticipation, Date: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 4, BuildingID: 1, Amount: decimal.NewFromInt(25), Category: CategoryCleaning, Distribution: building.BasisParticipation, Date: march(15)},
	}}
	svc := NewService(repo)
	b := &building.Building{ID: 1, ApartmentCount: 3}

	buckets, err := svc.AggregateMonth(context.Background(), b, shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "25.00", buckets.Total().StringFixed(2))
}

func TestAggregateNoApartments(t *testing.T) {
	svc := NewService(&memoryExpenseRepo{})
	b := &building.Building{ID: 1, ApartmentCount: 0}

	_, err := svc.AggregateMonth(context.Background(), b, shared.Month{Year: 2025, Month: time.March})
	var cfgErr *shared.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, int64(1), cfgErr.BuildingID)
}
