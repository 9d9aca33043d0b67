package building

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/shared"
)

// HeatingType enumerates the heating installations a building can have.
type HeatingType string

const (
	// HeatingAutonomous splits heating cost into a fixed equally-shared part
	// and a variable mills-weighted part.
	HeatingAutonomous HeatingType = "autonomous"
	// HeatingCentral distributes the whole heating cost by heating mills.
	HeatingCentral HeatingType = "central"
)

// MillsTotal is the nominal sum of participation mills across a building.
const MillsTotal = 1000

// Building is the billing unit every apartment, expense and balance hangs off.
type Building struct {
	ID             int64
	Name           string
	Address        string
	ApartmentCount int

	ManagementFeePerApartment decimal.Decimal

	ReserveFundGoal           decimal.Decimal
	ReserveFundDurationMonths int
	ReserveFundStartDate      *time.Time
	ReserveFundTargetDate     *time.Time

	HeatingType            HeatingType
	HeatingFixedPercentage decimal.Decimal // fraction of heating cost shared equally, 0..1

	// FinancialSystemStart marks the first month for which historical data is
	// trustworthy; retroactive charge runs never reach before it.
	FinancialSystemStart time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReserveFundMonthly derives the monthly reserve contribution from the goal
// and saving duration. A goal without a duration cannot be billed.
func (b *Building) ReserveFundMonthly() (decimal.Decimal, error) {
	if b.ReserveFundGoal.IsZero() {
		return decimal.Zero, nil
	}
	if b.ReserveFundDurationMonths <= 0 {
		return decimal.Zero, shared.NewConfigurationError(b.ID, "reserve fund goal set without duration")
	}
	months := decimal.NewFromInt(int64(b.ReserveFundDurationMonths))
	return shared.Round2(b.ReserveFundGoal.Div(months)), nil
}

// Apartment holds the per-unit weighting data and the cached running balance.
// The balance is a projection of the transaction ledger: positive means
// credit, negative means debt.
type Apartment struct {
	ID         int64
	BuildingID int64
	Number     string

	ParticipationMills int64
	HeatingMills       int64
	ElevatorMills      int64
	SquareMeters       decimal.Decimal

	CurrentBalance decimal.Decimal

	OwnerName   string
	OwnerEmail  string
	TenantName  string
	TenantEmail string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InDebt reports whether the apartment's cached balance is negative.
func (a *Apartment) InDebt() bool {
	return a.CurrentBalance.IsNegative()
}
