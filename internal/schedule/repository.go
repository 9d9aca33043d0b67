package schedule

import (
	"context"

	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/shared"
)

// ChargeRepositoryPort persists monthly charges and their duplicate guard.
type ChargeRepositoryPort interface {
	// HasCharges reports whether the building was already billed this kind of
	// charge for the period.
	HasCharges(ctx context.Context, buildingID int64, period shared.Month, kind ChargeKind) (bool, error)
	// CreateCharges writes one issued expense and one ledger entry per line
	// plus the guard row, atomically. Returns shared.ErrAlreadyCharged when
	// the guard row already exists.
	CreateCharges(ctx context.Context, buildingID int64, period shared.Month, kind ChargeKind, lines []ChargeLine) (int, error)
	// InsertSchedule stores a payment schedule and its expanded draft
	// expenses in one transaction.
	InsertSchedule(ctx context.Context, ps PaymentSchedule, expenses []expense.Expense) (*PaymentSchedule, error)
}
