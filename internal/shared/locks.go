package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BillingLockKey builds redis keys for billing critical sections. One lock per
// building and period serialises concurrent charge-creation runs.
func BillingLockKey(buildingID int64, period Month) string {
	return fmt.Sprintf("billing:building:%d:%s:lock", buildingID, period.Key())
}

// BillingLock serialises monthly billing runs through redis.
type BillingLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBillingLock constructs a BillingLock with the given hold TTL.
func NewBillingLock(client *redis.Client, ttl time.Duration) *BillingLock {
	return &BillingLock{client: client, ttl: ttl}
}

// Acquire takes the lock for a building/period. It returns a release func on
// success and ErrBillingLocked when another run already holds it.
func (l *BillingLock) Acquire(ctx context.Context, buildingID int64, period Month) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		// Lockless mode: callers relying solely on the DB uniqueness
		// constraint still get duplicate protection.
		return func(context.Context) error { return nil }, nil
	}
	key := BillingLockKey(buildingID, period)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("billing lock: %w", err)
	}
	if !ok {
		return nil, ErrBillingLocked
	}
	release := func(ctx context.Context) error {
		val, err := l.client.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		if val != token {
			// Expired and re-acquired by someone else; leave it alone.
			return nil
		}
		return l.client.Del(ctx, key).Err()
	}
	return release, nil
}
