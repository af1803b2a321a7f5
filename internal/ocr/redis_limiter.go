package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the window, then records the call only if it fits.
// Returns {allowed, remaining, reset_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

local reset = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if #oldest > 0 then
	reset = tonumber(oldest[2]) + window - now
end

if count >= max then
	return {0, 0, reset}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, max - count - 1, reset}
`)

// RedisLimiter is a sliding-window limiter stored in a Redis sorted set, so
// every server instance shares one window.
type RedisLimiter struct {
	client redis.Scripter
	key    string
	max    int
	window time.Duration
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter allows at most max calls per rolling window across all
// instances using key.
func NewRedisLimiter(client redis.Scripter, key string, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, key: key, max: max, window: window, now: time.Now}
}

// Allow checks and records the call atomically on the Redis server.
func (l *RedisLimiter) Allow(ctx context.Context) (Decision, error) {
	res, err := slidingWindowScript.Run(ctx, l.client, []string{l.key},
		l.now().UnixMilli(), l.window.Milliseconds(), l.max, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	return Decision{
		Allowed:   res[0] == 1,
		Remaining: int(res[1]),
		ResetIn:   time.Duration(res[2]) * time.Millisecond,
	}, nil
}
