package expense

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUnissued returns draft expenses dated within [from, to).
func (r *Repository) ListUnissued(ctx context.Context, buildingID int64, from, to time.Time) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, building_id, apartment_id, title, amount, category, distribution, date,
is_issued, schedule_id, created_at, updated_at
FROM expenses WHERE building_id = $1 AND apartment_id IS NULL AND is_issued = FALSE AND date >= $2 AND date < $3 ORDER BY date, id`,
		buildingID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.BuildingID, &e.ApartmentID, &e.Title, &e.Amount, &e.Category, &e.Distribution,
			&e.Date, &e.IsIssued, &e.ScheduleID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

// SumExpensesBefore sums issued expense amounts dated before the cutoff.
func (r *Repository) SumExpensesBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses
WHERE building_id = $1 AND is_issued = TRUE AND date < $2`, buildingID, before).Scan(&total)
	return total, err
}

// SumExpensesInPeriod sums issued expense amounts dated within [from, to).
func (r *Repository) SumExpensesInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses
WHERE building_id = $1 AND is_issued = TRUE AND date >= $2 AND date < $3`, buildingID, from, to).Scan(&total)
	return total, err
}

// SumPaymentsBefore sums payments received before the cutoff.
func (r *Repository) SumPaymentsBefore(ctx context.Context, buildingID int64, before time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments
WHERE building_id = $1 AND date < $2`, buildingID, before).Scan(&total)
	return total, err
}

// SumPaymentsInPeriod sums payments received within [from, to).
func (r *Repository) SumPaymentsInPeriod(ctx context.Context, buildingID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments
WHERE building_id = $1 AND date >= $2 AND date < $3`, buildingID, from, to).Scan(&total)
	return total, err
}
