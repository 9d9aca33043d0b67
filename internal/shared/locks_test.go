package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestBillingLockAcquireRelease(t *testing.T) {
	client := newTestRedis(t)
	lock := NewBillingLock(client, time.Minute)
	period := Month{Year: 2025, Month: time.March}

	release, err := lock.Acquire(context.Background(), 1, period)
	require.NoError(t, err)

	_, err = lock.Acquire(context.Background(), 1, period)
	require.ErrorIs(t, err, ErrBillingLocked)

	require.NoError(t, release(context.Background()))

	release2, err := lock.Acquire(context.Background(), 1, period)
	require.NoError(t, err)
	require.NoError(t, release2(context.Background()))
}

func TestBillingLockIndependentPeriods(t *testing.T) {
	client := newTestRedis(t)
	lock := NewBillingLock(client, time.Minute)

	release1, err := lock.Acquire(context.Background(), 1, Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	defer func() { _ = release1(context.Background()) }()

	release2, err := lock.Acquire(context.Background(), 1, Month{Year: 2025, Month: time.April})
	require.NoError(t, err)
	defer func() { _ = release2(context.Background()) }()

	release3, err := lock.Acquire(context.Background(), 2, Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	defer func() { _ = release3(context.Background()) }()
}

func TestBillingLockLocklessMode(t *testing.T) {
	lock := NewBillingLock(nil, time.Minute)
	release, err := lock.Acquire(context.Background(), 1, Month{Year: 2025, Month: time.March})
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}

func TestBillingLockReleaseAfterExpiry(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	lock := NewBillingLock(client, time.Minute)
	period := Month{Year: 2025, Month: time.March}

	release, err := lock.Acquire(context.Background(), 1, period)
	require.NoError(t, err)

	// Simulate expiry and takeover by another run.
	srv.FastForward(2 * time.Minute)
	release2, err := lock.Acquire(context.Background(), 1, period)
	require.NoError(t, err)

	// The stale release must not delete the new holder's lock.
	require.NoError(t, release(context.Background()))
	_, err = lock.Acquire(context.Background(), 1, period)
	require.ErrorIs(t, err, ErrBillingLocked)

	require.NoError(t, release2(context.Background()))
}
