// Package ratelimit holds the fixed-window limiters used for OTP requests
// and message sends, and the per-IP token bucket used at the HTTP edge.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	// Allow counts one hit for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

const luaFixedWindow = `
local current = redis.call("incr", KEYS[1])
if current == 1 then
  redis.call("pexpire", KEYS[1], ARGV[1])
end
return current
`

var fixedWindow = redis.NewScript(luaFixedWindow)

type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(r *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: r, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	count, err := fixedWindow.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return count <= l.limit, nil
}
