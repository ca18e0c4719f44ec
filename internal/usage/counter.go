// Package usage tracks per-user consumption counters that feed the limit
// gates. Database-backed counts (projects, personas, team size) live with
// their repositories; this package owns the Redis-backed monthly AI chat
// counter.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dttools/internal/types"
)

// monthlyKeyTTL keeps a calendar-month key around for one extra month so the
// previous period stays readable for reporting, then lets it expire.
const monthlyKeyTTL = 62 * 24 * time.Hour

// AIChatCounter counts AI chat messages per user per calendar month.
type AIChatCounter interface {
	// Current returns the user's message count for the month containing now.
	Current(ctx context.Context, userID string, now time.Time) (int, error)
	// Increment bumps the user's counter for the month containing now and
	// returns the new value.
	Increment(ctx context.Context, userID string, now time.Time) (int, error)
}

// RedisAIChatCounter is the production AIChatCounter, storing one integer
// key per user per calendar month.
type RedisAIChatCounter struct {
	client *redis.Client
}

func NewRedisAIChatCounter(client *redis.Client) *RedisAIChatCounter {
	return &RedisAIChatCounter{client: client}
}

// monthlyKey builds the calendar-month key, e.g. "aichat:user_1:2026-08".
// Months roll over in UTC so every instance agrees on the boundary.
func monthlyKey(userID string, now time.Time) string {
	return fmt.Sprintf("aichat:%s:%s", userID, now.UTC().Format("2006-01"))
}

func (c *RedisAIChatCounter) Current(ctx context.Context, userID string, now time.Time) (int, error) {
	n, err := c.client.Get(ctx, monthlyKey(userID, now)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeUpstreamKV, "failed to read ai chat counter", err)
	}
	return n, nil
}

func (c *RedisAIChatCounter) Increment(ctx context.Context, userID string, now time.Time) (int, error) {
	key := monthlyKey(userID, now)

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, monthlyKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, types.NewAppError(types.ErrCodeUpstreamKV, "failed to increment ai chat counter", err)
	}
	return int(incr.Val()), nil
}
