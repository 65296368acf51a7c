package clarify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "caloriebot:dialog:"

// RedisStore keeps dialogs as JSON values that Redis expires after ttl.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, subjectID string) (Dialog, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+subjectID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Dialog{}, ErrNoDialog
	}
	if err != nil {
		return Dialog{}, err
	}
	var d Dialog
	if err := json.Unmarshal(raw, &d); err != nil {
		return Dialog{}, err
	}
	return d, nil
}

func (s *RedisStore) Set(ctx context.Context, d Dialog) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, redisKeyPrefix+d.SubjectID, b, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, subjectID string) error {
	return s.rdb.Del(ctx, redisKeyPrefix+subjectID).Err()
}
