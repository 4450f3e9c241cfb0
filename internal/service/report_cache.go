package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"habitflow/internal/analytics"
)

// ReportCache stores computed reports per user and calendar day.
type ReportCache interface {
	Get(ctx context.Context, userID int, date string) (*analytics.Report, error)
	Set(ctx context.Context, userID int, date string, report analytics.Report) error
	Invalidate(ctx context.Context, userID int) error
}

// ErrCacheMiss is returned by ReportCache.Get when nothing is stored.
var ErrCacheMiss = errors.New("analytics cache miss")

func ReportCacheKey(userID int, date string) string {
	return fmt.Sprintf("analytics:%d:%s", userID, date)
}

type RedisReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisReportCache(rdb *redis.Client, ttl time.Duration) *RedisReportCache {
	return &RedisReportCache{rdb: rdb, ttl: ttl}
}

func (c *RedisReportCache) Get(ctx context.Context, userID int, date string) (*analytics.Report, error) {
	data, err := c.rdb.Get(ctx, ReportCacheKey(userID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var report analytics.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *RedisReportCache) Set(ctx context.Context, userID int, date string, report analytics.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, ReportCacheKey(userID, date), data, c.ttl).Err()
}

// Invalidate drops every cached day for the user. Keys are few per user, so
// a SCAN over the user's prefix is enough.
func (c *RedisReportCache) Invalidate(ctx context.Context, userID int) error {
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("analytics:%d:*", userID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// NoopReportCache disables caching when Redis is not configured.
type NoopReportCache struct{}

func (NoopReportCache) Get(context.Context, int, string) (*analytics.Report, error) {
	return nil, ErrCacheMiss
}
func (NoopReportCache) Set(context.Context, int, string, analytics.Report) error { return nil }
func (NoopReportCache) Invalidate(context.Context, int) error                    { return nil }
