package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adeptly/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	globalLeaderboardPrefix  = "adeptly:leaderboard:global"
	globalLeaderboardVersion = "adeptly:leaderboard:global:version"
)

func globalKey(version int64) string {
	return fmt.Sprintf("%s:v%d", globalLeaderboardPrefix, version)
}

// ErrMiss is returned by Get when nothing is cached.
var ErrMiss = errors.New("cache miss")

// LeaderboardCache stores the serialized global top-N list in Redis.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaderboardCache connects and pings Redis.
func NewLeaderboardCache(ctx context.Context, cfg config.RedisConfig) (*LeaderboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LeaderboardCache{client: client, ttl: ttl}, nil
}

// GlobalVersion returns the current board version, 0 before the first invalidation.
func (c *LeaderboardCache) GlobalVersion(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, globalLeaderboardVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get leaderboard version: %w", err)
	}
	return v, nil
}

// GetGlobal decodes the list cached for version into dst.
func (c *LeaderboardCache) GetGlobal(ctx context.Context, version int64, dst any) error {
	raw, err := c.client.Get(ctx, globalKey(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("get cached leaderboard: %w", err)
	}
	return json.Unmarshal(raw, dst)
}

// SetGlobal caches the list under version for the configured ttl.
func (c *LeaderboardCache) SetGlobal(ctx context.Context, version int64, entries any) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, globalKey(version), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache leaderboard: %w", err)
	}
	return nil
}

// InvalidateGlobal bumps the version and drops the list cached for the old one.
// A write still in flight for the old version lands on a key no reader asks for.
func (c *LeaderboardCache) InvalidateGlobal(ctx context.Context) error {
	next, err := c.client.Incr(ctx, globalLeaderboardVersion).Result()
	if err != nil {
		return fmt.Errorf("bump leaderboard version: %w", err)
	}
	if err := c.client.Del(ctx, globalKey(next-1)).Err(); err != nil {
		return fmt.Errorf("error deleting key %s: %w", globalKey(next-1), err)
	}
	return nil
}

// Close closes the client.
func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}
