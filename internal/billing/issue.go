package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oikos-digital/oikos/internal/shared"
)

// IssueReceipt summarises what an issue run persisted.
type IssueReceipt struct {
	RunID           string          `json:"run_id"`
	BuildingID      int64           `json:"building_id"`
	Period          string          `json:"period"`
	ChargesCreated  int             `json:"charges_created"`
	DraftsIssued    int64           `json:"drafts_issued"`
	TotalIssued     decimal.Decimal `json:"total_issued"`
	TransactionRefs []int64         `json:"-"`
}

// IssuePort persists a computed result: one charge expense and one ledger
// entry per apartment, plus marking the source drafts as issued, all inside a
// single database transaction.
type IssuePort interface {
	IssueShares(ctx context.Context, result *Result) (*IssueReceipt, error)
}

// Service drives calculation, issuing and the dashboard summary.
type Service struct {
	calc   *Calculator
	issuer IssuePort
	cache  *SummaryCache
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService builds Service instance. Cache may be nil.
func NewService(calc *Calculator, issuer IssuePort, cache *SummaryCache, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{calc: calc, issuer: issuer, cache: cache, audit: audit, logger: logger}
}

// Calculate runs the share calculator without touching state. Dry runs and the
// HTTP preview endpoint go through here; an issuing run reuses the identical
// computation, which is what makes dry-run output trustworthy.
func (s *Service) Calculate(ctx context.Context, buildingID int64, period shared.Month, opts Options) (*Result, error) {
	return s.calc.Calculate(ctx, buildingID, period, opts)
}

// CalculateAndIssue computes shares and persists them.
func (s *Service) CalculateAndIssue(ctx context.Context, buildingID int64, period shared.Month, opts Options) (*Result, *IssueReceipt, error) {
	result, err := s.calc.Calculate(ctx, buildingID, period, opts)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := s.issuer.IssueShares(ctx, result)
	if err != nil {
		return nil, nil, err
	}
	receipt.RunID = uuid.NewString()
	s.cache.Invalidate(ctx, buildingID, period)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "billing.issue",
			Entity:   "building",
			EntityID: fmt.Sprintf("%d", buildingID),
			Meta: map[string]any{
				"run_id":          receipt.RunID,
				"period":          period.Key(),
				"charges_created": receipt.ChargesCreated,
				"total_issued":    receipt.TotalIssued.StringFixed(2),
			},
			At: time.Now().UTC(),
		})
	}
	if s.logger != nil {
		s.logger.Info("billing run issued",
			slog.Int64("building_id", buildingID),
			slog.String("period", period.Key()),
			slog.Int("charges", receipt.ChargesCreated),
			slog.String("total", receipt.TotalIssued.StringFixed(2)))
	}
	return result, receipt, nil
}
