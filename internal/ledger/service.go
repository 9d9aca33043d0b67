package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Service handles ledger business logic: appending entries, the obligation
// gate and balance folding.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RecordPayment appends a payment_received entry. Payments always increase
// the apartment's effective credit.
func (s *Service) RecordPayment(ctx context.Context, buildingID, apartmentID int64, amount decimal.Decimal, date time.Time, referenceID int64, description string) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, errors.New("payment amount must be positive")
	}
	return s.repo.AppendTransaction(ctx, Transaction{
		BuildingID:    buildingID,
		ApartmentID:   apartmentID,
		Type:          EntryPaymentReceived,
		Amount:        amount,
		Date:          date,
		ReferenceType: "payment",
		ReferenceID:   referenceID,
		Description:   description,
	})
}

// RecordAdjustment appends a signed balance_adjustment entry.
func (s *Service) RecordAdjustment(ctx context.Context, buildingID, apartmentID int64, delta decimal.Decimal, description string) (*Transaction, error) {
	if delta.IsZero() {
		return nil, errors.New("adjustment delta must be non-zero")
	}
	return s.repo.AppendTransaction(ctx, Transaction{
		BuildingID:  buildingID,
		ApartmentID: apartmentID,
		Type:        EntryAdjustment,
		Amount:      delta,
		Date:        time.Now().UTC(),
		Description: description,
	})
}

// HasOutstandingObligations reports whether any apartment in the building is
// in debt. While it returns true the reserve fund contribution is skipped
// entirely, never partially reduced.
func (s *Service) HasOutstandingObligations(ctx context.Context, buildingID int64) (bool, error) {
	debt, err := s.repo.SumOutstandingDebt(ctx, buildingID)
	if err != nil {
		return false, err
	}
	return debt.IsPositive(), nil
}

// FoldBalance recomputes an apartment's balance from its ledger entries.
func (s *Service) FoldBalance(ctx context.Context, apartmentID int64) (decimal.Decimal, error) {
	entries, err := s.repo.ListTransactions(ctx, apartmentID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.SignedAmount())
	}
	return balance, nil
}

// History returns an apartment's ledger entries.
func (s *Service) History(ctx context.Context, apartmentID int64) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, apartmentID)
}
