package building

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oikos-digital/oikos/internal/shared"
)

type memoryBuildingRepo struct {
	buildings  map[int64]Building
	apartments map[int64][]Apartment
}

func newMemoryBuildingRepo() *memoryBuildingRepo {
	return &memoryBuildingRepo{
		buildings:  make(map[int64]Building),
		apartments: make(map[int64][]Apartment),
	}
}

func (r *memoryBuildingRepo) GetBuilding(ctx context.Context, id int64) (*Building, error) {
	b, ok := r.buildings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

func (r *memoryBuildingRepo) ListBuildings(ctx context.Context) ([]Building, error) {
	out := make([]Building, 0, len(r.buildings))
	for _, b := range r.buildings {
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryBuildingRepo) ListApartments(ctx context.Context, buildingID int64) ([]Apartment, error) {
	return append([]Apartment(nil), r.apartments[buildingID]...), nil
}

func (r *memoryBuildingRepo) SumParticipationMills(ctx context.Context, buildingID int64) (int64, error) {
	var total int64
	for _, apt := range r.apartments[buildingID] {
		total += apt.ParticipationMills
	}
	return total, nil
}

func TestGetBuildingNotFound(t *testing.T) {
	svc := NewService(newMemoryBuildingRepo(), nil)
	_, err := svc.GetBuilding(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAuditMillsNominal(t *testing.T) {
	repo := newMemoryBuildingRepo()
	repo.buildings[1] = Building{ID: 1}
	repo.apartments[1] = []Apartment{
		{ID: 1, BuildingID: 1, ParticipationMills: 400},
		{ID: 2, BuildingID: 1, ParticipationMills: 600},
	}
	svc := NewService(repo, nil)

	warning, err := svc.AuditMills(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, warning)
}

func TestAuditMillsOffNominal(t *testing.T) {
	repo := newMemoryBuildingRepo()
	repo.buildings[1] = Building{ID: 1}
	repo.apartments[1] = testApartments()
	svc := NewService(repo, nil)

	warning, err := svc.AuditMills(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, warning)
	require.Equal(t, int64(1), warning.BuildingID)
	require.Equal(t, "participation_mills", warning.Subject)
	require.Contains(t, warning.Detail, "450")
}
