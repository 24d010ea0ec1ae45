package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "bookshelf:ratelimit"

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter counts requests per key in Redis, one counter per window slot.
type FixedWindowLimiter struct {
	limit   int
	window  time.Duration
	timeout time.Duration

	client *redis.Client
	prefix string
	now    func() time.Time
}

// Options configures a FixedWindowLimiter.
type Options struct {
	Addr     string
	Password string
	Prefix   string
	Limit    int
	Window   time.Duration
	// Timeout bounds each Redis round trip. Defaults to 2s.
	Timeout time.Duration
}

// NewFixedWindowLimiter creates a Redis-backed limiter.
func NewFixedWindowLimiter(opts Options) (*FixedWindowLimiter, error) {
	if opts.Limit <= 0 || opts.Window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &FixedWindowLimiter{
		limit:   opts.Limit,
		window:  opts.Window,
		timeout: timeout,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: opts.Password,
		}),
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Window reports the limiter's window length.
func (l *FixedWindowLimiter) Window() time.Duration {
	return l.window
}

// Allow reports whether key is still within quota for the current window.
// Redis failures fail closed.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		return true
	}
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false
	}
	return count <= int64(l.limit)
}

// Ping checks the Redis connection.
func (l *FixedWindowLimiter) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (l *FixedWindowLimiter) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}
