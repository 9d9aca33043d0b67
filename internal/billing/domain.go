package billing

import (
	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/shared"
)

// Breakdown is the fixed set of per-apartment charge components. Keeping the
// fields named (instead of an open map) means a renamed category is a compile
// error, not a silently missing key.
type Breakdown struct {
	General       decimal.Decimal `json:"general"`
	Elevator      decimal.Decimal `json:"elevator"`
	Heating       decimal.Decimal `json:"heating"`
	EqualShare    decimal.Decimal `json:"equal_share"`
	CoOwnership   decimal.Decimal `json:"co_ownership"`
	ReserveFund   decimal.Decimal `json:"reserve_fund"`
	ManagementFee decimal.Decimal `json:"management_fee"`
}

// Total sums every component.
func (b Breakdown) Total() decimal.Decimal {
	return b.General.Add(b.Elevator).Add(b.Heating).Add(b.EqualShare).
		Add(b.CoOwnership).Add(b.ReserveFund).Add(b.ManagementFee)
}

// Add accumulates another breakdown component-wise.
func (b Breakdown) Add(other Breakdown) Breakdown {
	return Breakdown{
		General:       b.General.Add(other.General),
		Elevator:      b.Elevator.Add(other.Elevator),
		Heating:       b.Heating.Add(other.Heating),
		EqualShare:    b.EqualShare.Add(other.EqualShare),
		CoOwnership:   b.CoOwnership.Add(other.CoOwnership),
		ReserveFund:   b.ReserveFund.Add(other.ReserveFund),
		ManagementFee: b.ManagementFee.Add(other.ManagementFee),
	}
}

// ApartmentShare is one apartment's computed amount with its full breakdown.
type ApartmentShare struct {
	ApartmentID int64           `json:"apartment_id"`
	Number      string          `json:"number"`
	Breakdown   Breakdown       `json:"breakdown"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Result is a full billing computation for one building and period.
type Result struct {
	BuildingID int64            `json:"building_id"`
	Period     shared.Month     `json:"-"`
	PeriodKey  string           `json:"period"`
	Shares     []ApartmentShare `json:"shares"`
	Totals     Breakdown        `json:"totals"`
	GrandTotal decimal.Decimal  `json:"grand_total"`

	Buckets        expense.Buckets      `json:"-"`
	HeatingSplit   expense.HeatingSplit `json:"-"`
	ReserveMonthly decimal.Decimal      `json:"reserve_monthly"`
	// GateClosed is true when no apartment is in arrears and the reserve fund
	// was charged.
	GateClosed bool `json:"gate_closed"`

	Warnings []string `json:"warnings,omitempty"`
}

// Share returns the computed share for one apartment, if present.
func (r *Result) Share(apartmentID int64) (ApartmentShare, bool) {
	for _, s := range r.Shares {
		if s.ApartmentID == apartmentID {
			return s, true
		}
	}
	return ApartmentShare{}, false
}

// Options tunes a single calculation. The zero value is the standard monthly
// run; overrides exist for previews and for buildings whose reserve plan is
// managed outside the goal/duration settings.
type Options struct {
	// ReserveMonthlyOverride replaces the amount derived from the building's
	// reserve goal and duration.
	ReserveMonthlyOverride *decimal.Decimal
	// SkipManagementFee leaves the flat fee out, used when the fee was
	// already issued by the charge scheduler for this period.
	SkipManagementFee bool
}
