package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "history:"

type redisStore struct {
	rdb    *redis.Client
	window int
	ttl    time.Duration
}

// NewRedisStore keeps the last window turns per phone in a Redis list that
// expires ttl after the latest append.
func NewRedisStore(rdb *redis.Client, window int, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, window: window, ttl: ttl}
}

func key(phone string) string {
	return keyPrefix + phone
}

func (s *redisStore) Load(ctx context.Context, phone string) ([]Turn, error) {
	raw, err := s.rdb.LRange(ctx, key(phone), int64(-s.window), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *redisStore) Append(ctx context.Context, phone string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]any, 0, len(turns))
	for _, t := range turns {
		if t.Timestamp.IsZero() {
			t.Timestamp = time.Now().UTC()
		}
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
		values = append(values, string(data))
	}

	k := key(phone)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, k, values...)
	pipe.LTrim(ctx, k, int64(-s.window), -1)
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context, phone string) error {
	if err := s.rdb.Del(ctx, key(phone)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
