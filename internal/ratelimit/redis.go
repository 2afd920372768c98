package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// allowScript trims expired entries, counts what remains, and conditionally
// records the new action in one atomic redis call, so two concurrent callers
// can never both observe limit-1 and both get admitted.
//
// KEYS[1] window sorted set
// ARGV[1] now (unix nanos), ARGV[2] window (nanos), ARGV[3] limit,
// ARGV[4] unique member for this action, ARGV[5] key TTL (millis)
const allowScriptSrc = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, now - window)
if redis.call("ZCARD", KEYS[1]) >= limit then
	return 0
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return 1
`

var allowScript = redis.NewScript(allowScriptSrc)

// redisClient is what the limiter needs from go-redis: script execution for
// the window and plain commands for the stats counters.
type redisClient interface {
	redis.Scripter
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
}

// RedisLimiter enforces a sliding window shared across all server instances
// using a sorted set per key, updated atomically via allowScript.
type RedisLimiter struct {
	rdb    redisClient
	limit  int
	window time.Duration
	prefix string

	stats bool
}

type RedisOption func(*RedisLimiter)

func WithPrefix(prefix string) RedisOption {
	return func(l *RedisLimiter) { l.prefix = prefix }
}

// WithStats enables allowed/denied counters in a redis hash alongside the
// window state.
func WithStats(enabled bool) RedisOption {
	return func(l *RedisLimiter) { l.stats = enabled }
}

func NewRedisLimiter(rdb redisClient, limit int, window time.Duration, opts ...RedisOption) *RedisLimiter {
	l := &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "ratelimit",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixNano()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()

	res, err := allowScript.Run(ctx, l.rdb,
		[]string{l.prefix + ":window:" + key},
		now,
		l.window.Nanoseconds(),
		l.limit,
		member,
		l.window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit window: %w", err)
	}

	allowed := res == 1
	l.record(ctx, allowed)
	return allowed, nil
}

func (l *RedisLimiter) record(ctx context.Context, allowed bool) {
	if !l.stats {
		return
	}

	field := "denied"
	if allowed {
		field = "allowed"
	}
	// best effort: stats never fail the caller's operation
	_ = l.rdb.HIncrBy(ctx, l.prefix+":stats", field, 1).Err()
}
