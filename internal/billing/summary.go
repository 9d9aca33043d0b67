package billing

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/shared"
)

// Summary carries the aggregate figures the dashboard endpoint serves.
type Summary struct {
	BuildingID          int64           `json:"building_id"`
	Period              string          `json:"period"`
	TotalBalance        decimal.Decimal `json:"total_balance"`
	CurrentObligations  decimal.Decimal `json:"current_obligations"`
	PreviousObligations decimal.Decimal `json:"previous_obligations"`
	CurrentReserve      decimal.Decimal `json:"current_reserve"`
	ReserveContribution decimal.Decimal `json:"reserve_fund_contribution"`
	TotalManagementCost decimal.Decimal `json:"total_management_cost"`
}

// SummaryPort provides the aggregates backing the dashboard summary.
type SummaryPort interface {
	SumBalances(ctx context.Context, buildingID int64) (decimal.Decimal, error)
	SumOutstandingDebt(ctx context.Context, buildingID int64) (decimal.Decimal, error)
	SumReserveCollected(ctx context.Context, buildingID int64) (decimal.Decimal, error)
	PreviousCarryForward(ctx context.Context, buildingID int64, year, month int) (decimal.Decimal, error)
}

// SummaryService assembles the dashboard summary, with a short-TTL cache in
// front of the aggregate queries.
type SummaryService struct {
	buildings BuildingSource
	repo      SummaryPort
	cache     *SummaryCache
	logger    *slog.Logger
}

// NewSummaryService builds SummaryService instance.
func NewSummaryService(buildings BuildingSource, repo SummaryPort, cache *SummaryCache, logger *slog.Logger) *SummaryService {
	return &SummaryService{buildings: buildings, repo: repo, cache: cache, logger: logger}
}

// Summary computes the aggregate figures for a building and period.
func (s *SummaryService) Summary(ctx context.Context, buildingID int64, period shared.Month) (*Summary, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, buildingID, period); ok {
			return cached, nil
		}
	}

	b, err := s.buildings.GetBuilding(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	totalBalance, err := s.repo.SumBalances(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	obligations, err := s.repo.SumOutstandingDebt(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	reserveCollected, err := s.repo.SumReserveCollected(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	prev := period.Prev()
	previous, err := s.repo.PreviousCarryForward(ctx, buildingID, prev.Year, int(prev.Month))
	if err != nil {
		return nil, err
	}
	reserveMonthly, err := b.ReserveFundMonthly()
	if err != nil {
		return nil, err
	}
	if obligations.IsPositive() {
		reserveMonthly = decimal.Zero
	}

	summary := &Summary{
		BuildingID:          buildingID,
		Period:              period.Key(),
		TotalBalance:        shared.Round2(totalBalance),
		CurrentObligations:  shared.Round2(obligations),
		PreviousObligations: shared.Round2(previous),
		CurrentReserve:      shared.Round2(reserveCollected),
		ReserveContribution: reserveMonthly,
		TotalManagementCost: shared.Round2(b.ManagementFeePerApartment.Mul(decimal.NewFromInt(int64(b.ApartmentCount)))),
	}
	if s.cache != nil {
		s.cache.Set(ctx, summary)
	}
	return summary, nil
}

var _ BuildingSource = (*building.Repository)(nil)
