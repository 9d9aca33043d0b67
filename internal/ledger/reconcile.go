package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oikos-digital/oikos/internal/shared"
)

// ReconcileReport lists apartments whose cached balance diverged from the
// ledger fold. Drift is an integrity warning, not a fatal error.
func (s *Service) ReconcileReport(ctx context.Context, buildingID int64) ([]shared.IntegrityWarning, []BalanceCheck, error) {
	checks, err := s.repo.ListBalanceChecks(ctx, buildingID)
	if err != nil {
		return nil, nil, err
	}
	var warnings []shared.IntegrityWarning
	var drifted []BalanceCheck
	for _, c := range checks {
		if !c.Drifted() {
			continue
		}
		drifted = append(drifted, c)
		w := shared.IntegrityWarning{
			BuildingID: buildingID,
			Subject:    "apartment_balance",
			Detail: fmt.Sprintf("apartment %s cached %s, ledger %s",
				c.Number, c.Cached.StringFixed(2), c.Ledger.StringFixed(2)),
		}
		warnings = append(warnings, w)
		if s.logger != nil {
			s.logger.Warn("balance drift detected",
				slog.Int64("building_id", buildingID),
				slog.Int64("apartment_id", c.ApartmentID),
				slog.String("cached", c.Cached.StringFixed(2)),
				slog.String("ledger", c.Ledger.StringFixed(2)))
		}
	}
	return warnings, drifted, nil
}

// ReconcileFix rebuilds drifted cached balances from the ledger. The ledger is
// the source of truth; the cache is a projection, so the fix rewrites the
// projection and never appends entries. Safe to re-run: a second call finds
// nothing to fix.
func (s *Service) ReconcileFix(ctx context.Context, buildingID int64) (int, error) {
	_, drifted, err := s.ReconcileReport(ctx, buildingID)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, c := range drifted {
		if err := s.repo.SetApartmentBalance(ctx, c.ApartmentID, c.Ledger); err != nil {
			return fixed, err
		}
		fixed++
		if s.logger != nil {
			s.logger.Info("balance projection rebuilt",
				slog.Int64("apartment_id", c.ApartmentID),
				slog.String("balance", c.Ledger.StringFixed(2)))
		}
	}
	return fixed, nil
}
