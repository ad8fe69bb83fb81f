package ratelimit

import "context"

// RateLimiter bounds operation throughput per key. The portal keys the
// submission limiter by farm id.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
