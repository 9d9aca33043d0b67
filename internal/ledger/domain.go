package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType enumerates ledger entry kinds.
type EntryType string

const (
	EntryExpenseCreated  EntryType = "expense_created"
	EntryExpenseIssued   EntryType = "expense_issued"
	EntryPaymentReceived EntryType = "payment_received"
	EntryAdjustment      EntryType = "balance_adjustment"
	EntryInterestCharge  EntryType = "interest_charge"
)

// Sign returns the direction the entry moves an apartment balance: payments
// and credits are positive, charges are negative. Draft creation records the
// expense without touching any balance. Adjustments carry their own sign in
// the amount.
func (t EntryType) Sign() int {
	switch t {
	case EntryExpenseIssued, EntryInterestCharge:
		return -1
	case EntryExpenseCreated:
		return 0
	default:
		return 1
	}
}

// Transaction is the append-only ledger entry. Apartment.CurrentBalance is a
// projection of these rows and is never trusted over them.
type Transaction struct {
	ID            int64
	BuildingID    int64
	ApartmentID   int64
	Type          EntryType
	Amount        decimal.Decimal // always non-negative except adjustments
	Date          time.Time
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceType string // "expense", "payment", "schedule"
	ReferenceID   int64
	Description   string
	CreatedAt     time.Time
}

// SignedAmount returns the balance delta this entry represents.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == EntryAdjustment {
		return t.Amount
	}
	switch t.Type.Sign() {
	case -1:
		return t.Amount.Neg()
	case 0:
		return decimal.Zero
	}
	return t.Amount
}

// MonthlyBalance is the per (building, year, month) snapshot forming the
// carry-forward chain: previous_obligations of month N equals carry_forward of
// month N-1.
type MonthlyBalance struct {
	ID                  int64
	BuildingID          int64
	Year                int
	Month               int
	TotalExpenses       decimal.Decimal
	TotalPayments       decimal.Decimal
	PreviousObligations decimal.Decimal
	ReserveFundAmount   decimal.Decimal
	ManagementFees      decimal.Decimal
	CarryForward        decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// BalanceCheck pairs an apartment's cached balance with the ledger-derived
// one for reconciliation.
type BalanceCheck struct {
	ApartmentID int64
	Number      string
	Cached      decimal.Decimal
	Ledger      decimal.Decimal
}

// Drifted reports whether the projection diverged from the ledger.
func (c BalanceCheck) Drifted() bool {
	return !c.Cached.Equal(c.Ledger)
}
