package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/building"
)

// Category enumerates what an expense was for.
type Category string

const (
	CategoryCleaning          Category = "cleaning"
	CategoryElectricityCommon Category = "electricity_common"
	CategoryWaterCommon       Category = "water_common"
	CategoryElevatorMaint     Category = "elevator_maintenance"
	CategoryHeatingFuel       Category = "heating_fuel"
	CategoryManagementFees    Category = "management_fees"
	CategoryReserveFund       Category = "reserve_fund"
	CategoryRepairs           Category = "repairs"
	CategoryCommonCharges     Category = "common_charges"
	CategoryInsurance         Category = "insurance"
	CategoryOther             Category = "other"
)

// Expense is a building cost awaiting allocation. Once issued it is frozen and
// excluded from subsequent period aggregations.
type Expense struct {
	ID         int64
	BuildingID int64
	// ApartmentID is set on issued per-apartment charges; building-level
	// drafts awaiting allocation leave it nil.
	ApartmentID  *int64
	Title        string
	Amount       decimal.Decimal
	Category     Category
	Distribution building.Basis
	Date         time.Time
	IsIssued     bool
	// ScheduleID links installment expenses back to their payment schedule.
	ScheduleID *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Payment is money received from an apartment. Always additive to the
// apartment's effective credit.
type Payment struct {
	ID          int64
	BuildingID  int64
	ApartmentID int64
	Amount      decimal.Decimal
	Date        time.Time
	Method      string
	PayerName   string
	Note        string
	CreatedAt   time.Time
}

// Buckets groups a period's unissued expenses by allocation channel.
type Buckets struct {
	General     decimal.Decimal // by participation mills
	Elevator    decimal.Decimal // by elevator mills
	Heating     decimal.Decimal // heating fuel, split fixed/variable downstream
	EqualShare  decimal.Decimal // flat per apartment
	CoOwnership decimal.Decimal // by square meters
}

// Total sums all buckets.
func (b Buckets) Total() decimal.Decimal {
	return b.General.Add(b.Elevator).Add(b.Heating).Add(b.EqualShare).Add(b.CoOwnership)
}
