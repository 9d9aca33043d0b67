package expense

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/shared"
)

func TestSplitHeatingAutonomous(t *testing.T) {
	b := &building.Building{
		ID:                     1,
		ApartmentCount:         3,
		HeatingType:            building.HeatingAutonomous,
		HeatingFixedPercentage: decimal.RequireFromString("0.30"),
	}
	split, err := SplitHeating(decimal.NewFromInt(2700), b)
	require.NoError(t, err)
	require.Equal(t, "270.00", split.FixedPerApartment.StringFixed(2))
	require.Equal(t, "1890.00", split.VariableTotal.StringFixed(2))

	// Fixed part times apartments plus variable recovers the full cost.
	recovered := split.FixedPerApartment.Mul(decimal.NewFromInt(3)).Add(split.VariableTotal)
	require.Equal(t, "2700.00", recovered.StringFixed(2))
}

func TestSplitHeatingRoundedFixedRecoversTotal(t *testing.T) {
	b := &building.Building{
		ID:                     1,
		ApartmentCount:         7,
		HeatingType:            building.HeatingAutonomous,
		HeatingFixedPercentage: decimal.RequireFromString("0.30"),
	}
	// 300.00 fixed over seven apartments does not land on whole cents; the
	// rounding difference belongs to the variable pool.
	split, err := SplitHeating(decimal.NewFromInt(1000), b)
	require.NoError(t, err)
	require.Equal(t, "42.86", split.FixedPerApartment.StringFixed(2))
	require.Equal(t, "699.98", split.VariableTotal.StringFixed(2))

	recovered := split.FixedPerApartment.Mul(decimal.NewFromInt(7)).Add(split.VariableTotal)
	require.Equal(t, "1000.00", recovered.StringFixed(2))
}

func TestSplitHeatingVariableByMills(t *testing.T) {
	b := &building.Building{
		ID:                     1,
		ApartmentCount:         3,
		HeatingType:            building.HeatingAutonomous,
		HeatingFixedPercentage: decimal.RequireFromString("0.30"),
	}
	split, err := SplitHeating(decimal.NewFromInt(2700), b)
	require.NoError(t, err)

	apartments := []building.Apartment{
		{ID: 1, BuildingID: 1, HeatingMills: 250},
		{ID: 2, BuildingID: 1, HeatingMills: 200},
		{ID: 3, BuildingID: 1, HeatingMills: 300},
	}
	ws, err := building.ResolveWeights(apartments, building.BasisHeating, nil)
	require.NoError(t, err)

	totals := map[int64]string{}
	for _, apt := range apartments {
		totals[apt.ID] = split.FixedPerApartment.Add(ws.Share(apt.ID, split.VariableTotal)).StringFixed(2)
	}
	require.Equal(t, "900.00", totals[1])
	require.Equal(t, "774.00", totals[2])
	require.Equal(t, "1026.00", totals[3])
}

func TestSplitHeatingCentral(t *testing.T) {
	b := &building.Building{ID: 1, ApartmentCount: 4, HeatingType: building.HeatingCentral}
	split, err := SplitHeating(decimal.NewFromInt(1000), b)
	require.NoError(t, err)
	require.True(t, split.FixedPerApartment.IsZero())
	require.Equal(t, "1000.00", split.VariableTotal.StringFixed(2))
}

func TestSplitHeatingZeroTotal(t *testing.T) {
	b := &building.Building{ID: 1, ApartmentCount: 3, HeatingType: building.HeatingAutonomous}
	split, err := SplitHeating(decimal.Zero, b)
	require.NoError(t, err)
	require.True(t, split.FixedPerApartment.IsZero())
	require.True(t, split.VariableTotal.IsZero())
}

func TestSplitHeatingInvalidPercentage(t *testing.T) {
	for _, pct := range []string{"-0.1", "1.5"} {
		b := &building.Building{
			ID:                     1,
			ApartmentCount:         3,
			HeatingType:            building.HeatingAutonomous,
			HeatingFixedPercentage: decimal.RequireFromString(pct),
		}
		_, err := SplitHeating(decimal.NewFromInt(100), b)
		var cfgErr *shared.ConfigurationError
		require.ErrorAs(t, err, &cfgErr, pct)
	}
}

func TestSplitHeatingNoApartments(t *testing.T) {
	b := &building.Building{ID: 1, HeatingType: building.HeatingAutonomous}
	_, err := SplitHeating(decimal.NewFromInt(100), b)
	var cfgErr *shared.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
