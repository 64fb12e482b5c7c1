package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eeg-workload-be/pkg/events"

	"github.com/redis/go-redis/v9"
)

const (
	LatestKeyPrefix = "workload:latest:"
	UpdatesChannel  = "workload_updates"
	DefaultTTL      = 5 * time.Minute
)

// WorkloadCache keeps the latest prediction per user in Redis and announces
// each one on the updates channel.
type WorkloadCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewWorkloadCache(rdb *redis.Client, ttl time.Duration) *WorkloadCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &WorkloadCache{rdb: rdb, ttl: ttl}
}

func LatestKey(userID string) string {
	return LatestKeyPrefix + userID
}

func (c *WorkloadCache) StoreLatest(ctx context.Context, ev events.WorkloadPredicted) error {
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		return fmt.Errorf("marshal workload: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, LatestKey(ev.UserID), data, c.ttl)
	pipe.Publish(ctx, UpdatesChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store latest: %w", err)
	}
	return nil
}

// Latest returns the cached prediction for userID, or false when none is
// cached.
func (c *WorkloadCache) Latest(ctx context.Context, userID string) (events.WorkloadPredicted, bool, error) {
	data, err := c.rdb.Get(ctx, LatestKey(userID)).Bytes()
	if err == redis.Nil {
		return events.WorkloadPredicted{}, false, nil
	}
	if err != nil {
		return events.WorkloadPredicted{}, false, err
	}
	ev, err := events.DecodeWorkloadPredicted(data)
	if err != nil {
		return events.WorkloadPredicted{}, false, err
	}
	return ev, true, nil
}
