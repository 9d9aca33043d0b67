package building

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

// GetBuilding loads one building with its settings.
func (r *Repository) GetBuilding(ctx context.Context, id int64) (*Building, error) {
	var b Building
	err := r.pool.QueryRow(ctx, `SELECT id, name, address, apartment_count, management_fee_per_apartment,
reserve_fund_goal, reserve_fund_duration_months, reserve_fund_start_date, reserve_fund_target_date,
heating_type, heating_fixed_percentage, financial_system_start, created_at, updated_at
FROM buildings WHERE id = $1`, id).Scan(
		&b.ID, &b.Name, &b.Address, &b.ApartmentCount, &b.ManagementFeePerApartment,
		&b.ReserveFundGoal, &b.ReserveFundDurationMonths, &b.ReserveFundStartDate, &b.ReserveFundTargetDate,
		&b.HeatingType, &b.HeatingFixedPercentage, &b.FinancialSystemStart, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListBuildings returns every building, oldest first. Batch charge runs
// iterate this list.
func (r *Repository) ListBuildings(ctx context.Context) ([]Building, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, address, apartment_count, management_fee_per_apartment,
reserve_fund_goal, reserve_fund_duration_months, reserve_fund_start_date, reserve_fund_target_date,
heating_type, heating_fixed_percentage, financial_system_start, created_at, updated_at
FROM buildings ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var buildings []Building
	for rows.Next() {
		var b Building
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.ApartmentCount, &b.ManagementFeePerApartment,
			&b.ReserveFundGoal, &b.ReserveFundDurationMonths, &b.ReserveFundStartDate, &b.ReserveFundTargetDate,
			&b.HeatingType, &b.HeatingFixedPercentage, &b.FinancialSystemStart, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		buildings = append(buildings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buildings, nil
}

// ListApartments returns a building's apartments ordered by number.
func (r *Repository) ListApartments(ctx context.Context, buildingID int64) ([]Apartment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, building_id, number, participation_mills, heating_mills,
elevator_mills, square_meters, current_balance, owner_name, owner_email, tenant_name, tenant_email,
created_at, updated_at
FROM apartments WHERE building_id = $1 ORDER BY number`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var apartments []Apartment
	for rows.Next() {
		var a Apartment
		if err := rows.Scan(&a.ID, &a.BuildingID, &a.Number, &a.ParticipationMills, &a.HeatingMills,
			&a.ElevatorMills, &a.SquareMeters, &a.CurrentBalance, &a.OwnerName, &a.OwnerEmail,
			&a.TenantName, &a.TenantEmail, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		apartments = append(apartments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apartments, nil
}

// SumParticipationMills returns the building's participation mills total, used
// by the mills audit.
func (r *Repository) SumParticipationMills(ctx context.Context, buildingID int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(participation_mills), 0) FROM apartments WHERE building_id = $1`, buildingID).Scan(&total)
	return total, err
}
