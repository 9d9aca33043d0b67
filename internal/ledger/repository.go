package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// RepositoryPort defines data access methods for the ledger.
type RepositoryPort interface {
	AppendTransaction(ctx context.Context, input Transaction) (*Transaction, error)
	ListTransactions(ctx context.Context, apartmentID int64) ([]Transaction, error)
	SumOutstandingDebt(ctx context.Context, buildingID int64) (decimal.Decimal, error)
	GetMonthlyBalance(ctx context.Context, buildingID int64, year, month int) (*MonthlyBalance, error)
	UpsertMonthlyBalance(ctx context.Context, mb MonthlyBalance) (*MonthlyBalance, error)
	ListMonthlyBalances(ctx context.Context, buildingID int64) ([]MonthlyBalance, error)
	ListBalanceChecks(ctx context.Context, buildingID int64) ([]BalanceCheck, error)
	SetApartmentBalance(ctx context.Context, apartmentID int64, balance decimal.Decimal) error
}
