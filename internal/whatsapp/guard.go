package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers message ids so Meta redeliveries are processed once.
type Deduper interface {
	// FirstSeen reports whether id had not been recorded before, and records it.
	FirstSeen(ctx context.Context, id string) (bool, error)
}

// RateLimiter bounds how many messages one phone may send per window.
type RateLimiter interface {
	Allow(ctx context.Context, phone string) (bool, error)
}

type redisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) Deduper {
	return &redisDeduper{rdb: rdb, ttl: ttl}
}

func (d *redisDeduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, "wa:msg:"+id, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record message id: %w", err)
	}
	return ok, nil
}

// redisRateLimiter is a fixed window counter keyed by phone and window start.
type redisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration) RateLimiter {
	return &redisRateLimiter{rdb: rdb, limit: limit, window: window, now: time.Now}
}

func (l *redisRateLimiter) Allow(ctx context.Context, phone string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	key := fmt.Sprintf("wa:rate:%s:%d", phone, bucket)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to count message: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}
