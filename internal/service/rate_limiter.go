package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// slidingWindowScript keeps one sorted-set member per admitted hit, scored in
// milliseconds. It returns {allowed, resetAtMillis}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

if redis.call('ZCARD', key) >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    if #oldest == 2 then
        return {0, tonumber(oldest[2]) + window}
    end
    return {0, now + window}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window + 1000)
return {1, now + window}
`)

const rateLimitKeyPrefix = "accessgate:ratelimit:"

// RedisRateLimiter is a sliding-window limiter shared by every server
// instance.
type RedisRateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

var _ Limiter = (*RedisRateLimiter)(nil)

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, now: time.Now}
}

// CheckLimit records one hit against key and reports whether it fits within
// limit hits per window. Redis failures deny the request.
func (rl *RedisRateLimiter) CheckLimit(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
) (allowed bool, resetAt time.Time) {
	now := rl.now()

	result, err := slidingWindowScript.Run(
		ctx,
		rl.client,
		[]string{rateLimitKeyPrefix + key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
	).Int64Slice()

	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, denying request")
		return false, now.Add(window)
	}
	if len(result) != 2 {
		log.Warn().Str("key", key).Int("len", len(result)).Msg("unexpected rate limit result, denying request")
		return false, now.Add(window)
	}

	return result[0] == 1, time.UnixMilli(result[1])
}
