package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis is a sliding-window limiter backed by a sorted set per key, shared by
// every replica talking to the same Redis.
type Redis struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
	Max    int
}

// Allow implements Limiter.
func (l Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	reset := now.Add(l.Window)
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return Decision{Allowed: true, Limit: l.Max, Remaining: l.Max, Reset: reset}, nil
	}

	redisKey := l.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-l.Window).UnixNano(), 10)
	member := fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Limit: l.Max, Reset: reset}, err
	}

	current := int(count.Val())
	return Decision{
		Allowed:   current <= l.Max,
		Limit:     l.Max,
		Remaining: max(l.Max-current, 0),
		Reset:     reset,
	}, nil
}
