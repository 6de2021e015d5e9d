package redisrepo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// luaSlidingWindow records a hit only when it is admitted, so a client that
// keeps hammering a closed window does not push its own reopening back.
//
// KEYS[1] key, ARGV: now_ms, window_ms, limit, member.
// Returns {admitted, hits_in_window, retry_after_ms}.
const luaSlidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)

if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then
    retry = window - (now - tonumber(oldest[2]))
  end
  if retry < 0 then retry = 0 end
  return {0, count, retry}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`

// SlidingWindowLimiter admits at most limit hits per key within window. It
// guards person search per client IP and document verification per
// confirmation.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	script *redis.Script
	now    func() time.Time
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	prefix string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaSlidingWindow),
		now:    time.Now,
	}
}

func (l *SlidingWindowLimiter) key(suffix string) string {
	return l.prefix + ":" + suffix
}

// Allow records one hit for suffix. When the window is full it reports how
// long until the oldest hit expires.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, suffix string) (bool, time.Duration, error) {
	const op = "redisrepo.SlidingWindowLimiter.Allow"

	res, err := l.script.Run(ctx, l.rdb,
		[]string{l.key(suffix)},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("%s:%w", op, err)
	}
	if len(res) != 3 {
		return false, 0, fmt.Errorf("%s: unexpected script result %v", op, res)
	}

	return toInt(res[0]) == 1, time.Duration(toInt(res[2])) * time.Millisecond, nil
}

// Reset forgets every hit recorded for suffix.
func (l *SlidingWindowLimiter) Reset(ctx context.Context, suffix string) error {
	const op = "redisrepo.SlidingWindowLimiter.Reset"

	if err := l.rdb.Del(ctx, l.key(suffix)).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func toInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		x, _ := strconv.ParseInt(t, 10, 64)
		return x
	default:
		return 0
	}
}
