package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "caloriebot:ratelimit:"

// RedisStore shares rate-limit state between processes. Records expire with
// the interval, so Redis evicts them without a sweep.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Acquire(ctx context.Context, subjectID string, now time.Time, interval time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, redisKeyPrefix+subjectID, now.UnixMilli(), interval).Result()
}

func (s *RedisStore) Last(ctx context.Context, subjectID string) (time.Time, bool, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+subjectID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}
