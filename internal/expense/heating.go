package expense

import (
	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/shared"
)

// HeatingSplit divides the heating bucket into a per-apartment fixed amount
// and a variable total distributed by heating mills.
type HeatingSplit struct {
	FixedPerApartment decimal.Decimal
	VariableTotal     decimal.Decimal
}

// SplitHeating applies the building's heating policy. Autonomous heating
// shares the configured fixed percentage equally and the rest by heating
// mills; central heating has no fixed component. The percentage is a business
// constant per building, never inferred.
func SplitHeating(total decimal.Decimal, b *building.Building) (HeatingSplit, error) {
	if total.IsZero() {
		return HeatingSplit{}, nil
	}
	if b.ApartmentCount == 0 {
		return HeatingSplit{}, shared.NewConfigurationError(b.ID, "no apartments registered")
	}
	if b.HeatingType == building.HeatingCentral {
		return HeatingSplit{VariableTotal: total}, nil
	}
	pct := b.HeatingFixedPercentage
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(1)) {
		return HeatingSplit{}, shared.NewConfigurationError(b.ID, "heating fixed percentage out of range")
	}
	count := decimal.NewFromInt(int64(b.ApartmentCount))
	fixedPer := shared.Round2(total.Mul(pct).Div(count))
	// The variable pool is what remains after the rounded fixed charges, so
	// fixed plus variable reconstructs the bucket to the cent.
	return HeatingSplit{
		FixedPerApartment: fixedPer,
		VariableTotal:     total.Sub(fixedPer.Mul(count)),
	}, nil
}
