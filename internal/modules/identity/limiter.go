// README: Failed sign-in counter backed by Redis INCR/EXPIRE.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts failed sign-ins per client key.
type Limiter interface {
	Failures(ctx context.Context, key string) (int, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

const failKeyPrefix = "identity:signin:fail:%s"

type RedisLimiter struct {
	redis  *redis.Client
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, window time.Duration) *RedisLimiter {
	return &RedisLimiter{redis: client, window: window}
}

func (l *RedisLimiter) Failures(ctx context.Context, key string) (int, error) {
	n, err := l.redis.Get(ctx, fmt.Sprintf(failKeyPrefix, key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Fail bumps the counter. The window starts at the first failure.
func (l *RedisLimiter) Fail(ctx context.Context, key string) error {
	k := fmt.Sprintf(failKeyPrefix, key)
	n, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return l.redis.Expire(ctx, k, l.window).Err()
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, fmt.Sprintf(failKeyPrefix, key)).Err()
}
