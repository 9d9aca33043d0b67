package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendTransaction inserts a ledger entry and moves the apartment's cached
// balance in the same transaction. The apartment row is locked so concurrent
// appends serialise instead of losing updates.
func (r *Repository) AppendTransaction(ctx context.Context, input Transaction) (*Transaction, error) {
	var out Transaction
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		out, err = appendTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendInTx appends a ledger entry inside an existing transaction. The
// billing issue path uses it so expense rows, ledger entries and balance
// updates commit or roll back together.
func AppendInTx(ctx context.Context, tx pgx.Tx, input Transaction) (Transaction, error) {
	return appendTx(ctx, tx, input)
}

func appendTx(ctx context.Context, tx pgx.Tx, input Transaction) (Transaction, error) {
	var before decimal.Decimal
	if err := tx.QueryRow(ctx, `SELECT current_balance FROM apartments WHERE id = $1 FOR UPDATE`,
		input.ApartmentID).Scan(&before); err != nil {
		return Transaction{}, err
	}
	input.BalanceBefore = before
	input.BalanceAfter = before.Add(input.SignedAmount())
	if input.Date.IsZero() {
		input.Date = time.Now().UTC()
	}
	err := tx.QueryRow(ctx, `INSERT INTO transactions (building_id, apartment_id, type, amount, date,
balance_before, balance_after, reference_type, reference_id, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW()) RETURNING id, created_at`,
		input.BuildingID, input.ApartmentID, input.Type, input.Amount, input.Date,
		input.BalanceBefore, input.BalanceAfter, input.ReferenceType, input.ReferenceID,
		input.Description).Scan(&input.ID, &input.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	_, err = tx.Exec(ctx, `UPDATE apartments SET current_balance = $1, updated_at = NOW() WHERE id = $2`,
		input.BalanceAfter, input.ApartmentID)
	if err != nil {
		return Transaction{}, err
	}
	return input, nil
}

// ListTransactions returns an apartment's ledger entries oldest first.
func (r *Repository) ListTransactions(ctx context.Context, apartmentID int64) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, building_id, apartment_id, type, amount, date,
balance_before, balance_after, reference_type, reference_id, description, created_at
FROM transactions WHERE apartment_id = $1 ORDER BY date, id`, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.BuildingID, &t.ApartmentID, &t.Type, &t.Amount, &t.Date,
			&t.BalanceBefore, &t.BalanceAfter, &t.ReferenceType, &t.ReferenceID, &t.Description,
			&t.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// SumOutstandingDebt returns the absolute sum of negative apartment balances.
func (r *Repository) SumOutstandingDebt(ctx context.Context, buildingID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(ABS(current_balance)), 0) FROM apartments
WHERE building_id = $1 AND current_balance < 0`, buildingID).Scan(&total)
	return total, err
}

// GetMonthlyBalance loads one snapshot row.
func (r *Repository) GetMonthlyBalance(ctx context.Context, buildingID int64, year, month int) (*MonthlyBalance, error) {
	var mb MonthlyBalance
	err := r.pool.QueryRow(ctx, `SELECT id, building_id, year, month, total_expenses, total_payments,
previous_obligations, reserve_fund_amount, management_fees, carry_forward, created_at, updated_at
FROM monthly_balances WHERE building_id = $1 AND year = $2 AND month = $3`, buildingID, year, month).Scan(
		&mb.ID, &mb.BuildingID, &mb.Year, &mb.Month, &mb.TotalExpenses, &mb.TotalPayments,
		&mb.PreviousObligations, &mb.ReserveFundAmount, &mb.ManagementFees, &mb.CarryForward,
		&mb.CreatedAt, &mb.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &mb, nil
}

// UpsertMonthlyBalance creates or refreshes the snapshot for a month. The
// unique constraint on (building_id, year, month) keeps the chain one row per
// period.
func (r *Repository) UpsertMonthlyBalance(ctx context.Context, mb MonthlyBalance) (*MonthlyBalance, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO monthly_balances (building_id, year, month, total_expenses,
total_payments, previous_obligations, reserve_fund_amount, management_fees, carry_forward, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
ON CONFLICT (building_id, year, month) DO UPDATE SET
total_expenses = EXCLUDED.total_expenses,
total_payments = EXCLUDED.total_payments,
previous_obligations = EXCLUDED.previous_obligations,
reserve_fund_amount = EXCLUDED.reserve_fund_amount,
management_fees = EXCLUDED.management_fees,
carry_forward = EXCLUDED.carry_forward,
updated_at = NOW()
RETURNING id, created_at, updated_at`,
		mb.BuildingID, mb.Year, mb.Month, mb.TotalExpenses, mb.TotalPayments,
		mb.PreviousObligations, mb.ReserveFundAmount, mb.ManagementFees, mb.CarryForward).Scan(
		&mb.ID, &mb.CreatedAt, &mb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &mb, nil
}

// ListMonthlyBalances returns a building's snapshots in chain order.
func (r *Repository) ListMonthlyBalances(ctx context.Context, buildingID int64) ([]MonthlyBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, building_id, year, month, total_expenses, total_payments,
previous_obligations, reserve_fund_amount, management_fees, carry_forward, created_at, updated_at
FROM monthly_balances WHERE building_id = $1 ORDER BY year, month`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []MonthlyBalance
	for rows.Next() {
		var mb MonthlyBalance
		if err := rows.Scan(&mb.ID, &mb.BuildingID, &mb.Year, &mb.Month, &mb.TotalExpenses, &mb.TotalPayments,
			&mb.PreviousObligations, &mb.ReserveFundAmount, &mb.ManagementFees, &mb.CarryForward,
			&mb.CreatedAt, &mb.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, mb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}

// ListBalanceChecks pairs each apartment's cached balance with the ledger
// fold so reconciliation can spot drift in one query.
func (r *Repository) ListBalanceChecks(ctx context.Context, buildingID int64) ([]BalanceCheck, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.number, a.current_balance,
COALESCE(SUM(CASE
    WHEN t.type = 'payment_received' THEN t.amount
    WHEN t.type IN ('expense_issued', 'interest_charge') THEN -t.amount
    WHEN t.type = 'balance_adjustment' THEN t.amount
    ELSE t.amount
END), 0)
FROM apartments a
LEFT JOIN transactions t ON t.apartment_id = a.id
WHERE a.building_id = $1
GROUP BY a.id, a.number, a.current_balance
ORDER BY a.number`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var checks []BalanceCheck
	for rows.Next() {
		var c BalanceCheck
		if err := rows.Scan(&c.ApartmentID, &c.Number, &c.Cached, &c.Ledger); err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return checks, nil
}

// SetApartmentBalance rewrites the cached projection. Used only by the
// reconcile fix path; the ledger itself is never touched.
func (r *Repository) SetApartmentBalance(ctx context.Context, apartmentID int64, balance decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, `UPDATE apartments SET current_balance = $1, updated_at = NOW() WHERE id = $2`,
		balance, apartmentID)
	return err
}
