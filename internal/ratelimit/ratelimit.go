// Package ratelimit bounds how often a user may trigger costly operations.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Window is a fixed-window counter kept in redis, shared by all instances.
type Window struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewWindow(client *redis.Client, prefix string, limit int, window time.Duration) *Window {
	return &Window{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

func (w *Window) Allow(ctx context.Context, key string) (bool, error) {
	if w.limit <= 0 {
		return true, nil
	}

	bucket := w.now().UnixNano() / int64(w.window)
	redisKey := fmt.Sprintf("%s:%s:%d", w.prefix, key, bucket)

	pipe := w.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, w.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(w.limit), nil
}

// Unlimited allows everything. Used when redis is not configured.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
