package expense

import (
	"context"
	"time"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/shared"
)

// Service aggregates a building's raw expenses into allocation buckets.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Aggregate sums the building's unissued expenses dated within [from, to)
// into category buckets. Heating fuel never lands in the general bucket; it is
// kept apart for the fixed/variable split.
func (s *Service) Aggregate(ctx context.Context, b *building.Building, from, to time.Time) (Buckets, error) {
	if b.ApartmentCount == 0 {
		return Buckets{}, shared.NewConfigurationError(b.ID, "no apartments registered")
	}
	expenses, err := s.repo.ListUnissued(ctx, b.ID, from, to)
	if err != nil {
		return Buckets{}, err
	}
	var buckets Buckets
	for _, e := range expenses {
		switch {
		case e.Category == CategoryHeatingFuel || e.Distribution == building.BasisHeating:
			buckets.Heating = buckets.Heating.Add(e.Amount)
		case e.Distribution == building.BasisElevator:
			buckets.Elevator = buckets.Elevator.Add(e.Amount)
		case e.Distribution == building.BasisEqual:
			buckets.EqualShare = buckets.EqualShare.Add(e.Amount)
		case e.Distribution == building.BasisSquareMeters:
			buckets.CoOwnership = buckets.CoOwnership.Add(e.Amount)
		default:
			buckets.General = buckets.General.Add(e.Amount)
		}
	}
	return buckets, nil
}

// AggregateMonth is a convenience wrapper over Aggregate for one billing month.
func (s *Service) AggregateMonth(ctx context.Context, b *building.Building, period shared.Month) (Buckets, error) {
	return s.Aggregate(ctx, b, period.Start(), period.End())
}
