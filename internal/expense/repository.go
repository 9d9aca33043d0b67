package expense

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RepositoryPort defines data access methods for expenses and payments.
type RepositoryPort interface {
	ListUnissued(ctx context.Context, buildingID int64, from, to time.Time) ([]Expense, error)
	SumExpensesBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error)
	SumExpensesInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error)
	SumPaymentsBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error)
	SumPaymentsInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error)
}
