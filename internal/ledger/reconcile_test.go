package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestReconcileReportCleanProjection(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	_, err := svc.RecordPayment(context.Background(), 1, 10, decimal.NewFromInt(80), time.Now(), 0, "")
	require.NoError(t, err)

	warnings, drifted, err := svc.ReconcileReport(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Empty(t, drifted)
}

func TestReconcileReportDetectsDrift(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	_, err := svc.RecordPayment(context.Background(), 1, 10, decimal.NewFromInt(80), time.Now(), 0, "")
	require.NoError(t, err)
	// Corrupt the projection behind the ledger's back.
	repo.apartments[10] = decimal.NewFromInt(55)

	warnings, drifted, err := svc.ReconcileReport(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, "apartment_balance", warnings[0].Subject)
	require.Len(t, drifted, 1)
	require.Equal(t, "55.00", drifted[0].Cached.StringFixed(2))
	require.Equal(t, "80.00", drifted[0].Ledger.StringFixed(2))
}

func TestReconcileFixRebuildsProjection(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	_, err := svc.RecordPayment(context.Background(), 1, 10, decimal.NewFromInt(80), time.Now(), 0, "")
	require.NoError(t, err)
	repo.apartments[10] = decimal.NewFromInt(55)

	fixed, err := svc.ReconcileFix(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, fixed)
	require.Equal(t, "80.00", repo.apartments[10].StringFixed(2))

	// The ledger itself is untouched and a second run finds nothing.
	entries, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	fixed, err = svc.ReconcileFix(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, fixed)
}
