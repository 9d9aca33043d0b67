package building

import "context"

// RepositoryPort defines data access methods for buildings and apartments.
type RepositoryPort interface {
	GetBuilding(ctx context.Context, id int64) (*Building, error)
	ListBuildings(ctx context.Context) ([]Building, error)
	ListApartments(ctx context.Context, buildingID int64) ([]Apartment, error)
	SumParticipationMills(ctx context.Context, buildingID int64) (int64, error)
}
