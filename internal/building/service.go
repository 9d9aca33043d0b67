package building

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oikos-digital/oikos/internal/shared"
)

// Service handles building and apartment reads for the billing engine.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetBuilding returns one building.
func (s *Service) GetBuilding(ctx context.Context, id int64) (*Building, error) {
	return s.repo.GetBuilding(ctx, id)
}

// ListBuildings returns all buildings.
func (s *Service) ListBuildings(ctx context.Context) ([]Building, error) {
	return s.repo.ListBuildings(ctx)
}

// ListApartments returns a building's apartments.
func (s *Service) ListApartments(ctx context.Context, buildingID int64) ([]Apartment, error) {
	return s.repo.ListApartments(ctx, buildingID)
}

// AuditMills verifies the participation mills total against the nominal 1000.
// A deviation is tolerated and reported as a warning; billing still divides by
// the actual total so shares stay proportional.
func (s *Service) AuditMills(ctx context.Context, buildingID int64) (*shared.IntegrityWarning, error) {
	total, err := s.repo.SumParticipationMills(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if total == MillsTotal {
		return nil, nil
	}
	warning := shared.IntegrityWarning{
		BuildingID: buildingID,
		Subject:    "participation_mills",
		Detail:     fmt.Sprintf("total is %d, expected %d", total, MillsTotal),
	}
	if s.logger != nil {
		s.logger.Warn("participation mills total off nominal",
			slog.Int64("building_id", buildingID),
			slog.Int64("total", total))
	}
	return &warning, nil
}
