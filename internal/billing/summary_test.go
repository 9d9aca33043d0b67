package billing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oikos-digital/oikos/internal/shared"
)

type fakeSummaryPort struct {
	balances decimal.Decimal
	debt     decimal.Decimal
	reserve  decimal.Decimal
	carry    decimal.Decimal
	calls    int
}

func (f *fakeSummaryPort) SumBalances(ctx context.Context, buildingID int64) (decimal.Decimal, error) {
	f.calls++
	return f.balances, nil
}

func (f *fakeSummaryPort) SumOutstandingDebt(ctx context.Context, buildingID int64) (decimal.Decimal, error) {
	return f.debt, nil
}

func (f *fakeSummaryPort) SumReserveCollected(ctx context.Context, buildingID int64) (decimal.Decimal, error) {
	return f.reserve, nil
}

func (f *fakeSummaryPort) PreviousCarryForward(ctx context.Context, buildingID int64, year, month int) (decimal.Decimal, error) {
	return f.carry, nil
}

func summaryTestCache(t *testing.T) *SummaryCache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSummaryCache(client, time.Minute)
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	cache := summaryTestCache(t)
	ctx := context.Background()
	period := shared.Month{Year: 2025, Month: time.March}

	_, ok := cache.Get(ctx, 1, period)
	require.False(t, ok)

	cache.Set(ctx, &Summary{
		BuildingID:   1,
		Period:       period.Key(),
		TotalBalance: decimal.RequireFromString("120.50"),
	})

	got, ok := cache.Get(ctx, 1, period)
	require.True(t, ok)
	require.Equal(t, "120.50", got.TotalBalance.StringFixed(2))

	// Other buildings and periods stay independent.
	_, ok = cache.Get(ctx, 2, period)
	require.False(t, ok)
	_, ok = cache.Get(ctx, 1, period.Next())
	require.False(t, ok)

	cache.Invalidate(ctx, 1, period)
	_, ok = cache.Get(ctx, 1, period)
	require.False(t, ok)
}

func TestSummaryCacheNilSafe(t *testing.T) {
	var cache *SummaryCache
	ctx := context.Background()
	period := shared.Month{Year: 2025, Month: time.March}

	_, ok := cache.Get(ctx, 1, period)
	require.False(t, ok)
	cache.Set(ctx, &Summary{BuildingID: 1, Period: period.Key()})
	cache.Invalidate(ctx, 1, period)
}

func TestSummaryServiceComputes(t *testing.T) {
	buildings := &fakeBuildingSource{building: sampleBuilding()}
	buildings.building.ReserveFundGoal = decimal.NewFromInt(4500)
	buildings.building.ReserveFundDurationMonths = 10
	port := &fakeSummaryPort{
		balances: decimal.RequireFromString("310.40"),
		debt:     decimal.Zero,
		reserve:  decimal.RequireFromString("900.00"),
		carry:    decimal.RequireFromString("75.25"),
	}
	svc := NewSummaryService(buildings, port, nil, nil)

	got, err := svc.Summary(context.Background(), 1, shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "310.40", got.TotalBalance.StringFixed(2))
	require.Equal(t, "900.00", got.CurrentReserve.StringFixed(2))
	require.Equal(t, "75.25", got.PreviousObligations.StringFixed(2))
	require.Equal(t, "450.00", got.ReserveContribution.StringFixed(2))
	require.Equal(t, "30.00", got.TotalManagementCost.StringFixed(2))
}

func TestSummaryServiceSuspendsReserveOnDebt(t *testing.T) {
	buildings := &fakeBuildingSource{building: sampleBuilding()}
	buildings.building.ReserveFundGoal = decimal.NewFromInt(4500)
	buildings.building.ReserveFundDurationMonths = 10
	port := &fakeSummaryPort{debt: decimal.RequireFromString("40.00")}
	svc := NewSummaryService(buildings, port, nil, nil)

	got, err := svc.Summary(context.Background(), 1, shared.Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.Equal(t, "40.00", got.CurrentObligations.StringFixed(2))
	require.True(t, got.ReserveContribution.IsZero())
}

func TestSummaryServiceUsesCache(t *testing.T) {
	buildings := &fakeBuildingSource{building: sampleBuilding()}
	port := &fakeSummaryPort{balances: decimal.RequireFromString("10.00")}
	cache := summaryTestCache(t)
	svc := NewSummaryService(buildings, port, cache, nil)
	period := shared.Month{Year: 2025, Month: time.March}

	first, err := svc.Summary(context.Background(), 1, period)
	require.NoError(t, err)
	require.Equal(t, 1, port.calls)

	second, err := svc.Summary(context.Background(), 1, period)
	require.NoError(t, err)
	require.Equal(t, 1, port.calls, "second read must come from the cache")
	require.Equal(t, first.TotalBalance.StringFixed(2), second.TotalBalance.StringFixed(2))
}
