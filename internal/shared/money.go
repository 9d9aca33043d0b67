package shared

import "github.com/shopspring/decimal"

// RoundingTolerance is the accepted residual when checking that allocated
// shares add back up to the source bucket. Sub-cent drift is rounding noise,
// anything larger is a real allocation defect.
var RoundingTolerance = decimal.New(1, -2)

// Round2 rounds a monetary amount to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// WithinTolerance reports whether two amounts differ by at most
// RoundingTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(RoundingTolerance)
}
