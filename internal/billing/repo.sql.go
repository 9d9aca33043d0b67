package billing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/ledger"
	"github.com/oikos-digital/oikos/internal/platform/db"
)

// Repository persists issued billing runs and serves summary aggregates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IssueShares writes one charge expense and one expense_issued ledger entry
// per apartment and flips the period's source drafts to issued. Everything
// happens in one RepeatableRead transaction; a failure on any apartment rolls
// the whole run back.
func (r *Repository) IssueShares(ctx context.Context, result *Result) (*IssueReceipt, error) {
	receipt := &IssueReceipt{
		BuildingID:  result.BuildingID,
		Period:      result.Period.Key(),
		TotalIssued: decimal.Zero,
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		issueDate := result.Period.Start()
		for _, share := range result.Shares {
			if share.TotalAmount.IsZero() {
				continue
			}
			title := fmt.Sprintf("Common expenses %s", result.Period.Key())
			var chargeID int64
			if err := tx.QueryRow(ctx, `INSERT INTO expenses (building_id, apartment_id, title, amount,
category, distribution, date, is_issued, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW()) RETURNING id`,
				result.BuildingID, share.ApartmentID, title, share.TotalAmount,
				expense.CategoryCommonCharges, "participation_mills", issueDate).Scan(&chargeID); err != nil {
				return err
			}
			entry, err := ledger.AppendInTx(ctx, tx, ledger.Transaction{
				BuildingID:    result.BuildingID,
				ApartmentID:   share.ApartmentID,
				Type:          ledger.EntryExpenseIssued,
				Amount:        share.TotalAmount,
				Date:          issueDate,
				ReferenceType: "expense",
				ReferenceID:   chargeID,
				Description:   title,
			})
			if err != nil {
				return err
			}
			receipt.ChargesCreated++
			receipt.TotalIssued = receipt.TotalIssued.Add(share.TotalAmount)
			receipt.TransactionRefs = append(receipt.TransactionRefs, entry.ID)
		}
		tag, err := tx.Exec(ctx, `UPDATE expenses SET is_issued = TRUE, updated_at = NOW()
WHERE building_id = $1 AND apartment_id IS NULL AND is_issued = FALSE AND date >= $2 AND date < $3`,
			result.BuildingID, result.Period.Start(), result.Period.End())
		if err != nil {
			return err
		}
		receipt.DraftsIssued = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// SumBalances returns the signed sum of all apartment balances.
func (r *Repository) SumBalances(ctx context.Context, buildingID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(current_balance), 0) FROM apartments
WHERE building_id = $1`, buildingID).Scan(&total)
	return total, err
}

// SumOutstandingDebt returns the absolute sum of negative apartment balances.
func (r *Repository) SumOutstandingDebt(ctx context.Context, buildingID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(ABS(current_balance)), 0) FROM apartments
WHERE building_id = $1 AND current_balance < 0`, buildingID).Scan(&total)
	return total, err
}

// SumReserveCollected returns the reserve fund charged to date.
func (r *Repository) SumReserveCollected(ctx context.Context, buildingID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses
WHERE building_id = $1 AND category = $2 AND is_issued = TRUE`, buildingID, expense.CategoryReserveFund).Scan(&total)
	return total, err
}

// PreviousCarryForward returns the prior month's carry_forward, or zero when
// that snapshot does not exist.
func (r *Repository) PreviousCarryForward(ctx context.Context, buildingID int64, year, month int) (decimal.Decimal, error) {
	var carry decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT carry_forward FROM monthly_balances
WHERE building_id = $1 AND year = $2 AND month = $3`, buildingID, year, month).Scan(&carry)
	if err == pgx.ErrNoRows {
		return decimal.Zero, nil
	}
	return carry, err
}
