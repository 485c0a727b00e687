// README: Redis SETNX claims so one insertion notifies a user at most once.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"campusride/internal/types"
)

type Claimer interface {
	Claim(ctx context.Context, uid, rideID types.ID) (bool, error)
}

const claimKeyPrefix = "notify:%s:%s"

type RedisClaimer struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisClaimer keeps claims for ttl, which should cover the recency window.
func NewRedisClaimer(client *redis.Client, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{redis: client, ttl: ttl}
}

func (c *RedisClaimer) Claim(ctx context.Context, uid, rideID types.ID) (bool, error) {
	return c.redis.SetNX(ctx, fmt.Sprintf(claimKeyPrefix, uid, rideID), 1, c.ttl).Result()
}
