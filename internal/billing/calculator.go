package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/shared"
)

// BuildingSource provides the building and apartment data a calculation needs.
type BuildingSource interface {
	GetBuilding(ctx context.Context, id int64) (*building.Building, error)
	ListApartments(ctx context.Context, buildingID int64) ([]building.Apartment, error)
}

// Aggregator sums a period's expenses into buckets.
type Aggregator interface {
	AggregateMonth(ctx context.Context, b *building.Building, period shared.Month) (expense.Buckets, error)
}

// ObligationSource answers whether a building has apartments in arrears.
type ObligationSource interface {
	HasOutstandingObligations(ctx context.Context, buildingID int64) (bool, error)
}

// Calculator computes per-apartment common-expense shares. It owns no state
// beyond its injected collaborators; every call resolves weights fresh from
// the current apartment set.
type Calculator struct {
	buildings   BuildingSource
	aggregator  Aggregator
	obligations ObligationSource
	logger      *slog.Logger
}

// NewCalculator builds Calculator instance.
func NewCalculator(buildings BuildingSource, aggregator Aggregator, obligations ObligationSource, logger *slog.Logger) *Calculator {
	return &Calculator{buildings: buildings, aggregator: aggregator, obligations: obligations, logger: logger}
}

// Calculate computes every apartment's share for the building and period.
// Monetary conservation holds per bucket: the apartment shares of each bucket
// sum back to the bucket total within sub-cent rounding.
func (c *Calculator) Calculate(ctx context.Context, buildingID int64, period shared.Month, opts Options) (*Result, error) {
	b, err := c.buildings.GetBuilding(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	apartments, err := c.buildings.ListApartments(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if len(apartments) == 0 {
		return nil, shared.NewConfigurationError(buildingID, "no apartments registered")
	}
	if b.ApartmentCount != len(apartments) {
		// The denormalised count drifted; proceed with the real one.
		b.ApartmentCount = len(apartments)
	}

	buckets, err := c.aggregator.AggregateMonth(ctx, b, period)
	if err != nil {
		return nil, err
	}
	split, err := expense.SplitHeating(buckets.Heating, b)
	if err != nil {
		return nil, err
	}

	participation, err := building.ResolveWeights(apartments, building.BasisParticipation, c.logger)
	if err != nil {
		return nil, err
	}
	elevator, err := building.ResolveWeights(apartments, building.BasisElevator, c.logger)
	if err != nil {
		return nil, err
	}
	heating, err := building.ResolveWeights(apartments, building.BasisHeating, c.logger)
	if err != nil {
		return nil, err
	}
	squareMeters, err := building.ResolveWeights(apartments, building.BasisSquareMeters, c.logger)
	if err != nil {
		return nil, err
	}
	equal, err := building.ResolveWeights(apartments, building.BasisEqual, c.logger)
	if err != nil {
		return nil, err
	}

	reserveMonthly := decimal.Zero
	if opts.ReserveMonthlyOverride != nil {
		reserveMonthly = *opts.ReserveMonthlyOverride
	} else {
		reserveMonthly, err = b.ReserveFundMonthly()
		if err != nil {
			return nil, err
		}
	}

	outstanding, err := c.obligations.HasOutstandingObligations(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	// The gate is all-or-nothing: a single apartment in arrears suspends the
	// whole building's reserve contribution for the period. It also stays
	// closed when the participation basis degraded to an equal split, since
	// reserve shares are defined over real mills only.
	chargeReserve := !outstanding && !participation.Degraded && reserveMonthly.IsPositive()

	result := &Result{
		BuildingID:     buildingID,
		Period:         period,
		PeriodKey:      period.Key(),
		Buckets:        buckets,
		HeatingSplit:   split,
		ReserveMonthly: reserveMonthly,
		GateClosed:     !outstanding,
	}

	// Each bucket is allocated as a whole so its shares sum back to the
	// bucket exactly; independent rounding would drift by up to half a cent
	// per apartment.
	generalShares := participation.Allocate(apartments, buckets.General)
	elevatorShares := elevator.Allocate(apartments, buckets.Elevator)
	variableShares := heating.Allocate(apartments, split.VariableTotal)
	equalShares := equal.Allocate(apartments, buckets.EqualShare)
	coOwnershipShares := squareMeters.Allocate(apartments, buckets.CoOwnership)
	var reserveShares map[int64]decimal.Decimal
	if chargeReserve {
		reserveShares = participation.Allocate(apartments, reserveMonthly)
	}

	var millsSum int64
	for _, apt := range apartments {
		millsSum += apt.ParticipationMills

		bd := Breakdown{
			General:     generalShares[apt.ID],
			Elevator:    elevatorShares[apt.ID],
			Heating:     split.FixedPerApartment.Add(variableShares[apt.ID]),
			EqualShare:  equalShares[apt.ID],
			CoOwnership: coOwnershipShares[apt.ID],
		}
		if chargeReserve {
			bd.ReserveFund = reserveShares[apt.ID]
		}
		if !opts.SkipManagementFee {
			// Flat per apartment, identical for everyone. Explicitly not
			// mills-weighted.
			bd.ManagementFee = shared.Round2(b.ManagementFeePerApartment)
		}

		result.Shares = append(result.Shares, ApartmentShare{
			ApartmentID: apt.ID,
			Number:      apt.Number,
			Breakdown:   bd,
			TotalAmount: bd.Total(),
		})
		result.Totals = result.Totals.Add(bd)
	}
	result.GrandTotal = result.Totals.Total()

	if millsSum != building.MillsTotal {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("participation mills total %d deviates from %d", millsSum, building.MillsTotal))
	}
	for _, ws := range []building.WeightSet{participation, elevator, heating, squareMeters} {
		if ws.Degraded {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("basis %s total is zero, used equal split", ws.Basis))
		}
	}
	if c.logger != nil && len(result.Warnings) > 0 {
		for _, w := range result.Warnings {
			c.logger.Warn("billing calculation warning",
				slog.Int64("building_id", buildingID),
				slog.String("period", period.Key()),
				slog.String("warning", w))
		}
	}
	return result, nil
}
