/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/acronis/go-appkit/lrucache"
)

// TokenBucketLimiter implements token bucket rate limiting algorithm
// on top of golang.org/x/time/rate.
type TokenBucketLimiter struct {
	getLimiter func(key string) *rate.Limiter
}

// NewTokenBucketLimiter creates a new token bucket rate limiter with the provided burst size.
// maxKeys limits how many per-key buckets are kept (0 means a single shared bucket for all keys).
func NewTokenBucketLimiter(maxRate Rate, burst, maxKeys int) (*TokenBucketLimiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("max rate must be positive")
	}
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(float64(maxRate.Count) / maxRate.Duration.Seconds())

	if maxKeys == 0 {
		lim := rate.NewLimiter(limit, burst)
		return &TokenBucketLimiter{getLimiter: func(_ string) *rate.Limiter { return lim }}, nil
	}

	store, err := lrucache.New[string, *rate.Limiter](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("new LRU in-memory store for keys: %w", err)
	}
	return &TokenBucketLimiter{
		getLimiter: func(key string) *rate.Limiter {
			lim, _ := store.GetOrAdd(key, func() *rate.Limiter {
				return rate.NewLimiter(limit, burst)
			})
			return lim
		},
	}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	lim := l.getLimiter(key)
	if lim.Allow() {
		return true, 0, nil
	}
	reservation := lim.Reserve()
	retryAfter = reservation.Delay()
	reservation.Cancel()
	return false, retryAfter, nil
}
