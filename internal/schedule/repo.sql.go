package schedule

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/ledger"
	"github.com/oikos-digital/oikos/internal/platform/db"
	"github.com/oikos-digital/oikos/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HasCharges checks the guard table for an existing charge.
func (r *Repository) HasCharges(ctx context.Context, buildingID int64, period shared.Month, kind ChargeKind) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM monthly_charges
WHERE building_id = $1 AND year = $2 AND month = $3 AND kind = $4)`,
		buildingID, period.Year, int(period.Month), kind).Scan(&exists)
	return exists, err
}

// CreateCharges writes the guard row, one issued expense per apartment and one
// ledger entry per apartment in a single transaction. The unique constraint on
// monthly_charges (building_id, year, month, kind) is the hard backstop
// against concurrent double-charging; the redis lock only narrows the window.
func (r *Repository) CreateCharges(ctx context.Context, buildingID int64, period shared.Month, kind ChargeKind, lines []ChargeLine) (int, error) {
	created := 0
	category := expense.CategoryManagementFees
	if kind == KindReserveFund {
		category = expense.CategoryReserveFund
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO monthly_charges (building_id, year, month, kind, created_at)
VALUES ($1, $2, $3, $4, NOW())`, buildingID, period.Year, int(period.Month), kind); err != nil {
			if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
				return shared.ErrAlreadyCharged
			}
			return err
		}
		date := period.Start()
		for _, line := range lines {
			if line.Amount.IsZero() {
				continue
			}
			title := chargeTitle(kind, period)
			var chargeID int64
			if err := tx.QueryRow(ctx, `INSERT INTO expenses (building_id, apartment_id, title, amount,
category, distribution, date, is_issued, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 'equal_share', $6, TRUE, NOW(), NOW()) RETURNING id`,
				buildingID, line.ApartmentID, title, line.Amount, category, date).Scan(&chargeID); err != nil {
				return err
			}
			if _, err := ledger.AppendInTx(ctx, tx, ledger.Transaction{
				BuildingID:    buildingID,
				ApartmentID:   line.ApartmentID,
				Type:          ledger.EntryExpenseIssued,
				Amount:        line.Amount,
				Date:          date,
				ReferenceType: "expense",
				ReferenceID:   chargeID,
				Description:   title,
			}); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func chargeTitle(kind ChargeKind, period shared.Month) string {
	switch kind {
	case KindReserveFund:
		return fmt.Sprintf("Reserve fund contribution %s", period.Key())
	default:
		return fmt.Sprintf("Management fee %s", period.Key())
	}
}

// InsertSchedule stores a payment schedule and its expanded draft expenses.
func (r *Repository) InsertSchedule(ctx context.Context, ps PaymentSchedule, expenses []expense.Expense) (*PaymentSchedule, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO payment_schedules (building_id, title, total_amount, shape,
advance_amount, installments, interval_months, start_date, category, distribution, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW()) RETURNING id, created_at`,
			ps.BuildingID, ps.Title, ps.TotalAmount, ps.Shape, ps.AdvanceAmount, ps.Installments,
			ps.IntervalMonths, ps.StartDate, ps.Category, ps.Distribution).Scan(&ps.ID, &ps.CreatedAt); err != nil {
			return err
		}
		for _, e := range expenses {
			if _, err := tx.Exec(ctx, `INSERT INTO expenses (building_id, apartment_id, title, amount,
category, distribution, date, is_issued, schedule_id, created_at, updated_at)
VALUES ($1, NULL, $2, $3, $4, $5, $6, FALSE, $7, NOW(), NOW())`,
				e.BuildingID, e.Title, e.Amount, e.Category, e.Distribution, e.Date, ps.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ps, nil
}
