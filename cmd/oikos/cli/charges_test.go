package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/expense"
	"github.com/oikos-digital/oikos/internal/schedule"
	"github.com/oikos-digital/oikos/internal/shared"
)

type cliBuildingRepo struct {
	buildings  map[int64]building.Building
	apartments map[int64][]building.Apartment
}

func (r *cliBuildingRepo) GetBuilding(ctx context.Context, id int64) (*building.Building, error) {
	b, ok := r.buildings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

func (r *cliBuildingRepo) ListBuildings(ctx context.Context) ([]building.Building, error) {
	out := make([]building.Building, 0, len(r.buildings))
	for _, b := range r.buildings {
		out = append(out, b)
	}
	return out, nil
}

func (r *cliBuildingRepo) ListApartments(ctx context.Context, buildingID int64) ([]building.Apartment, error) {
	return r.apartments[buildingID], nil
}

func (r *cliBuildingRepo) SumParticipationMills(ctx context.Context, buildingID int64) (int64, error) {
	var total int64
	for _, apt := range r.apartments[buildingID] {
		total += apt.ParticipationMills
	}
	return total, nil
}

type cliChargeKey struct {
	buildingID int64
	period     shared.Month
	kind       schedule.ChargeKind
}

type cliChargeRepo struct {
	created map[cliChargeKey]int
}

func (r *cliChargeRepo) HasCharges(ctx context.Context, buildingID int64, period shared.Month, kind schedule.ChargeKind) (bool, error) {
	_, ok := r.created[cliChargeKey{buildingID, period, kind}]
	return ok, nil
}

func (r *cliChargeRepo) CreateCharges(ctx context.Context, buildingID int64, period shared.Month, kind schedule.ChargeKind, lines []schedule.ChargeLine) (int, error) {
	key := cliChargeKey{buildingID, period, kind}
	if _, ok := r.created[key]; ok {
		return 0, shared.ErrAlreadyCharged
	}
	r.created[key] = len(lines)
	return len(lines), nil
}

func (r *cliChargeRepo) InsertSchedule(ctx context.Context, ps schedule.PaymentSchedule, expenses []expense.Expense) (*schedule.PaymentSchedule, error) {
	return &ps, nil
}

type cliObligations struct{}

func (cliObligations) HasOutstandingObligations(ctx context.Context, buildingID int64) (bool, error) {
	return false, nil
}

func newTestScheduler() *schedule.Service {
	repo := &cliBuildingRepo{
		buildings: map[int64]building.Building{
			1: {
				ID:                        1,
				ApartmentCount:            2,
				ManagementFeePerApartment: decimal.NewFromInt(10),
				FinancialSystemStart:      time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		apartments: map[int64][]building.Apartment{
			1: {
				{ID: 1, BuildingID: 1, Number: "A1", ParticipationMills: 500},
				{ID: 2, BuildingID: 1, Number: "A2", ParticipationMills: 500},
			},
		},
	}
	charges := &cliChargeRepo{created: make(map[cliChargeKey]int)}
	return schedule.NewService(repo, charges, cliObligations{}, nil, nil, nil, nil)
}

func TestChargesRunAll(t *testing.T) {
	cli := NewChargesCLI(newTestScheduler())
	var stdout, stderr bytes.Buffer

	code := cli.Run(context.Background(), ChargesOptions{
		Month:  "2025-03",
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.Zero(t, code)
	require.Empty(t, stderr.String())
	require.Contains(t, stdout.String(), "2 created")
}

func TestChargesJSONOutput(t *testing.T) {
	cli := NewChargesCLI(newTestScheduler())
	var stdout, stderr bytes.Buffer

	code := cli.Run(context.Background(), ChargesOptions{
		Month:      "2025-03",
		BuildingID: 1,
		JSONOutput: true,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	require.Zero(t, code)

	var summary schedule.RunSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.Equal(t, 2, summary.Created)
	require.Len(t, summary.Reports, 1)
	require.Equal(t, "2025-03", summary.Reports[0].PeriodKey)
}

func TestChargesDryRunWritesNothing(t *testing.T) {
	scheduler := newTestScheduler()
	cli := NewChargesCLI(scheduler)
	var stdout bytes.Buffer

	code := cli.Run(context.Background(), ChargesOptions{
		Month:      "2025-03",
		BuildingID: 1,
		DryRun:     true,
		Stdout:     &stdout,
		Stderr:     &stdout,
	})
	require.Zero(t, code)
	require.Contains(t, stdout.String(), "dry run")

	// The month is still open afterwards.
	stdout.Reset()
	code = cli.Run(context.Background(), ChargesOptions{
		Month:      "2025-03",
		BuildingID: 1,
		JSONOutput: true,
		Stdout:     &stdout,
		Stderr:     &stdout,
	})
	require.Zero(t, code)
	var summary schedule.RunSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.Equal(t, 2, summary.Created)
}

func TestChargesInvalidMonth(t *testing.T) {
	cli := NewChargesCLI(newTestScheduler())
	var stdout, stderr bytes.Buffer

	code := cli.Run(context.Background(), ChargesOptions{
		Month:  "03-2025",
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "invalid --month")
}

func TestChargesFlagConflicts(t *testing.T) {
	cli := NewChargesCLI(newTestScheduler())
	var stderr bytes.Buffer

	code := cli.Run(context.Background(), ChargesOptions{
		BuildingID:   1,
		Retroactive:  true,
		FutureMonths: 2,
		Stderr:       &stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "mutually exclusive")

	stderr.Reset()
	code = cli.Run(context.Background(), ChargesOptions{
		Retroactive: true,
		Stderr:      &stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "--building is required")
}

func TestChargesRetroactive(t *testing.T) {
	cli := NewChargesCLI(newTestScheduler())
	var stdout bytes.Buffer

	code := cli.Run(context.Background(), ChargesOptions{
		Month:       "2025-03",
		BuildingID:  1,
		Retroactive: true,
		JSONOutput:  true,
		Stdout:      &stdout,
		Stderr:      &stdout,
	})
	require.Zero(t, code)

	var summary schedule.RunSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.Len(t, summary.Reports, 3)
	require.Equal(t, 6, summary.Created)
}

func TestChargesUnknownBuilding(t *testing.T) {
	cli := NewChargesCLI(newTestScheduler())
	var stdout, stderr bytes.Buffer

	code := cli.Run(context.Background(), ChargesOptions{
		Month:      "2025-03",
		BuildingID: 7,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "not found")
}

func TestChargesFailureExitCode(t *testing.T) {
	repo := &cliBuildingRepo{
		buildings: map[int64]building.Building{
			// No apartments registered, so the report fails.
			1: {ID: 1, FinancialSystemStart: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)},
		},
		apartments: map[int64][]building.Apartment{},
	}
	charges := &cliChargeRepo{created: make(map[cliChargeKey]int)}
	scheduler := schedule.NewService(repo, charges, cliObligations{}, nil, nil, nil, nil)
	cli := NewChargesCLI(scheduler)
	var stdout, stderr bytes.Buffer

	code := cli.Run(context.Background(), ChargesOptions{
		Month:  "2025-03",
		Stdout: &stdout,
		Stderr: &stderr,
	})
	require.Equal(t, 10, code)
	require.Contains(t, stdout.String(), "FAILED")
}
