package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oikos-digital/oikos/internal/shared"
)

// SummaryCache keeps dashboard summaries in redis for a short TTL so the
// dashboard does not re-run aggregate queries on every poll.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache constructs a SummaryCache.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(buildingID int64, period shared.Month) string {
	return fmt.Sprintf("billing:summary:%d:%s", buildingID, period.Key())
}

// Get returns a cached summary if present and decodable.
func (c *SummaryCache) Get(ctx context.Context, buildingID int64, period shared.Month) (*Summary, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, summaryKey(buildingID, period)).Bytes()
	if err != nil {
		return nil, false
	}
	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Set stores a summary. Cache failures are ignored; the next read recomputes.
func (c *SummaryCache) Set(ctx context.Context, s *Summary) {
	if c == nil || c.client == nil || s == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	period, err := shared.ParseMonth(s.Period)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, summaryKey(s.BuildingID, period), raw, c.ttl).Err()
}

// Invalidate drops the cached summary for a building/period, used after an
// issuing run changes the underlying aggregates.
func (c *SummaryCache) Invalidate(ctx context.Context, buildingID int64, period shared.Month) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, summaryKey(buildingID, period)).Err()
}
