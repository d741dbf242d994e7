// Package cache provides the Redis-backed stats cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/domain/reports"
)

const defaultKeyPrefix = "stockledger:stats:"

var _ reports.Cache = (*StatsCache)(nil)

// StatsCache stores computed warehouse stats as JSON values in Redis.
type StatsCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewStatsCache creates a stats cache. An empty keyPrefix selects the default.
func NewStatsCache(client redis.UniversalClient, keyPrefix string) *StatsCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &StatsCache{client: client, keyPrefix: keyPrefix}
}

// Connect opens a client for addr and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Get returns the cached stats for key. A missing key is a miss, not an error.
func (c *StatsCache) Get(ctx context.Context, key string) (*reports.Stats, bool, error) {
	payload, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get stats %q: %w", key, err)
	}

	var stats reports.Stats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, false, fmt.Errorf("decode stats %q: %w", key, err)
	}
	return &stats, true, nil
}

// Set stores stats under key for ttl.
func (c *StatsCache) Set(ctx context.Context, key string, stats *reports.Stats, ttl time.Duration) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set stats %q: %w", key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (c *StatsCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.keyPrefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("delete stats: %w", err)
	}
	return nil
}
