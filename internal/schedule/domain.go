package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/shared"
)

// ChargeKind enumerates the recurring monthly charges.
type ChargeKind string

const (
	KindManagementFee ChargeKind = "management_fee"
	KindReserveFund   ChargeKind = "reserve_fund"
)

// ChargeLine is one apartment's portion of a monthly charge.
type ChargeLine struct {
	ApartmentID int64
	Number      string
	Amount      decimal.Decimal
}

// MonthReport records the outcome of charge creation for one building/month.
// A skip is expected behavior, not a failure.
type MonthReport struct {
	BuildingID int64        `json:"building_id"`
	Period     shared.Month `json:"-"`
	PeriodKey  string       `json:"period"`
	DryRun     bool         `json:"dry_run"`

	Created int                        `json:"created"`
	Skipped int                        `json:"skipped"`
	Amounts map[string]decimal.Decimal `json:"amounts,omitempty"`

	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunSummary aggregates month reports across a batch run. One failed month
// never aborts the rest; callers read the summary to see what happened.
type RunSummary struct {
	Reports []MonthReport `json:"reports"`
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
}

func (s *RunSummary) add(r MonthReport) {
	s.Reports = append(s.Reports, r)
	s.Created += r.Created
	s.Skipped += r.Skipped
	if r.Failed {
		s.Failed++
	}
}

// ScheduleShape enumerates how a maintenance contract total spreads over
// months.
type ScheduleShape string

const (
	// ShapeLumpSum bills the whole amount in the start month.
	ShapeLumpSum ScheduleShape = "lump_sum"
	// ShapeAdvanceInstallments bills an advance up front and the remainder in
	// equal monthly installments.
	ShapeAdvanceInstallments ScheduleShape = "advance_installments"
	// ShapePeriodic bills equal amounts every IntervalMonths.
	ShapePeriodic ScheduleShape = "periodic"
)

// PaymentSchedule splits a contracted total into dated expenses so a large
// contract lands in the months it covers instead of distorting a single
// month's allocation.
type PaymentSchedule struct {
	ID          int64
	BuildingID  int64
	Title       string
	TotalAmount decimal.Decimal
	Shape       ScheduleShape

	AdvanceAmount  decimal.Decimal
	Installments   int
	IntervalMonths int
	StartDate      time.Time

	Category     expense.Category
	Distribution building.Basis

	CreatedAt time.Time
}
