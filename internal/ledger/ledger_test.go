package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// memoryLedgerRepo is the in-memory fake shared by the ledger tests.
type memoryLedgerRepo struct {
	transactions []Transaction
	balances     map[string]MonthlyBalance // key year-month per building
	checks       map[int64][]BalanceCheck
	apartments   map[int64]decimal.Decimal // cached balances by apartment
	buildingOf   map[int64]int64
	nextID       int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		balances:   make(map[string]MonthlyBalance),
		checks:     make(map[int64][]BalanceCheck),
		apartments: make(map[int64]decimal.Decimal),
		buildingOf: make(map[int64]int64),
	}
}

func balanceKey(buildingID int64, year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01") + "#" + decimal.NewFromInt(buildingID).String()
}

func (r *memoryLedgerRepo) AppendTransaction(ctx context.Context, input Transaction) (*Transaction, error) {
	r.nextID++
	input.ID = r.nextID
	before := r.apartments[input.ApartmentID]
	input.BalanceBefore = before
	input.BalanceAfter = before.Add(input.SignedAmount())
	r.apartments[input.ApartmentID] = input.BalanceAfter
	r.buildingOf[input.ApartmentID] = input.BuildingID
	r.transactions = append(r.transactions, input)
	return &input, nil
}

func (r *memoryLedgerRepo) ListTransactions(ctx context.Context, apartmentID int64) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.transactions {
		if t.ApartmentID == apartmentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) SumOutstandingDebt(ctx context.Context, buildingID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for aptID, balance := range r.apartments {
		if r.buildingOf[aptID] == buildingID && balance.IsNegative() {
			total = total.Add(balance.Neg())
		}
	}
	return total, nil
}

func (r *memoryLedgerRepo) GetMonthlyBalance(ctx context.Context, buildingID int64, year, month int) (*MonthlyBalance, error) {
	mb, ok := r.balances[balanceKey(buildingID, year, month)]
	if !ok {
		return nil, nil
	}
	return &mb, nil
}

func (r *memoryLedgerRepo) UpsertMonthlyBalance(ctx context.Context, mb MonthlyBalance) (*MonthlyBalance, error) {
	r.balances[balanceKey(mb.BuildingID, mb.Year, mb.Month)] = mb
	return &mb, nil
}

func (r *memoryLedgerRepo) ListMonthlyBalances(ctx context.Context, buildingID int64) ([]MonthlyBalance, error) {
	var out []MonthlyBalance
	for _, mb := range r.balances {
		if mb.BuildingID == buildingID {
			out = append(out, mb)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) ListBalanceChecks(ctx context.Context, buildingID int64) ([]BalanceCheck, error) {
	if checks, ok := r.checks[buildingID]; ok {
		return append([]BalanceCheck(nil), checks...), nil
	}
	var out []BalanceCheck
	for aptID, cached := range r.apartments {
		if r.buildingOf[aptID] != buildingID {
			continue
		}
		ledgerBalance := decimal.Zero
		for _, t := range r.transactions {
			if t.ApartmentID == aptID {
				ledgerBalance = ledgerBalance.Add(t.SignedAmount())
			}
		}
		out = append(out, BalanceCheck{ApartmentID: aptID, Cached: cached, Ledger: ledgerBalance})
	}
	return out, nil
}

func (r *memoryLedgerRepo) SetApartmentBalance(ctx context.Context, apartmentID int64, balance decimal.Decimal) error {
	r.apartments[apartmentID] = balance
	for i, c := range r.checks[r.buildingOf[apartmentID]] {
		if c.ApartmentID == apartmentID {
			r.checks[r.buildingOf[apartmentID]][i].Cached = balance
		}
	}
	return nil
}
