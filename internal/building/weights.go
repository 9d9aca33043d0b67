package building

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Basis enumerates the distribution bases an expense can be allocated by.
type Basis string

const (
	BasisParticipation Basis = "participation_mills"
	BasisHeating       Basis = "heating_mills"
	BasisElevator      Basis = "elevator_mills"
	BasisSquareMeters  Basis = "square_meters"
	BasisEqual         Basis = "equal"
)

// WeightSet holds resolved per-apartment weights for one basis together with
// the building-wide total.
type WeightSet struct {
	Basis   Basis
	Weights map[int64]decimal.Decimal
	Total   decimal.Decimal
	// Degraded is set when the basis total was zero and the resolver fell
	// back to an equal split.
	Degraded bool
}

// ResolveWeights resolves per-apartment weights for the given basis. A basis
// whose total is zero falls back to equal division so a misconfigured
// building still bills instead of dividing by zero; the fallback is logged as
// a warning because it is a degraded mode, not normal operation.
func ResolveWeights(apartments []Apartment, basis Basis, logger *slog.Logger) (WeightSet, error) {
	ws := WeightSet{Basis: basis, Weights: make(map[int64]decimal.Decimal, len(apartments))}
	for _, apt := range apartments {
		w, err := rawWeight(apt, basis)
		if err != nil {
			return WeightSet{}, err
		}
		ws.Weights[apt.ID] = w
		ws.Total = ws.Total.Add(w)
	}
	if ws.Total.IsZero() && len(apartments) > 0 {
		if logger != nil {
			logger.Warn("weight basis total is zero, falling back to equal split",
				slog.String("basis", string(basis)),
				slog.Int64("building_id", apartments[0].BuildingID))
		}
		for _, apt := range apartments {
			ws.Weights[apt.ID] = decimal.NewFromInt(1)
		}
		ws.Total = decimal.NewFromInt(int64(len(apartments)))
		ws.Degraded = true
	}
	return ws, nil
}

func rawWeight(apt Apartment, basis Basis) (decimal.Decimal, error) {
	switch basis {
	case BasisParticipation:
		return decimal.NewFromInt(apt.ParticipationMills), nil
	case BasisHeating:
		return decimal.NewFromInt(apt.HeatingMills), nil
	case BasisElevator:
		return decimal.NewFromInt(apt.ElevatorMills), nil
	case BasisSquareMeters:
		return apt.SquareMeters, nil
	case BasisEqual:
		return decimal.NewFromInt(1), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown distribution basis %q", basis)
	}
}

// Share allocates bucket proportionally to the apartment's weight, rounded to
// cents. Unknown apartments get a zero share. Independently rounded shares do
// not conserve the bucket; use Allocate when the sum must equal the bucket.
func (ws WeightSet) Share(apartmentID int64, bucket decimal.Decimal) decimal.Decimal {
	if ws.Total.IsZero() || bucket.IsZero() {
		return decimal.Zero
	}
	w, ok := ws.Weights[apartmentID]
	if !ok {
		return decimal.Zero
	}
	return bucket.Mul(w).Div(ws.Total).Round(2)
}

// Allocate splits bucket over the apartments so the shares sum back to the
// bucket exactly: every share but the last is the weight-proportional amount
// rounded to cents, and the last apartment absorbs the accumulated rounding
// residue. Order matters only for who carries the residue cents.
func (ws WeightSet) Allocate(apartments []Apartment, bucket decimal.Decimal) map[int64]decimal.Decimal {
	shares := make(map[int64]decimal.Decimal, len(apartments))
	if len(apartments) == 0 || ws.Total.IsZero() || bucket.IsZero() {
		for _, apt := range apartments {
			shares[apt.ID] = decimal.Zero
		}
		return shares
	}
	allocated := decimal.Zero
	for i, apt := range apartments {
		if i == len(apartments)-1 {
			shares[apt.ID] = bucket.Sub(allocated)
			break
		}
		share := ws.Share(apt.ID, bucket)
		shares[apt.ID] = share
		allocated = allocated.Add(share)
	}
	return shares
}

// Ratio returns the apartment's fraction of the basis total.
func (ws WeightSet) Ratio(apartmentID int64) decimal.Decimal {
	if ws.Total.IsZero() {
		return decimal.Zero
	}
	return ws.Weights[apartmentID].Div(ws.Total)
}
