package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisShareAttemptRepository struct {
	redis *redis.Client
}

func NewRedisShareAttemptRepository(redisClient *redis.Client) *RedisShareAttemptRepository {
	return &RedisShareAttemptRepository{redis: redisClient}
}

func shareAttemptKey(token string) string {
	return fmt.Sprintf("share:%s:failed_attempts", token)
}

func (r *RedisShareAttemptRepository) Failures(ctx context.Context, token string) (int64, error) {
	count, err := r.redis.Get(ctx, shareAttemptKey(token)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

// RecordFailure increments the counter. The window starts at the first
// failure and is not extended by later ones.
func (r *RedisShareAttemptRepository) RecordFailure(ctx context.Context, token string, windowSeconds int) (int64, error) {
	key := shareAttemptKey(token)
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 && windowSeconds > 0 {
		if err := r.redis.Expire(ctx, key, timeDurationSeconds(windowSeconds)).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (r *RedisShareAttemptRepository) Reset(ctx context.Context, token string) error {
	return r.redis.Del(ctx, shareAttemptKey(token)).Err()
}

func timeDurationSeconds(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
