/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/acronis/go-appkit/lrucache"
)

// AdaptiveLimiter wraps a Limiter and merges server-reported quota hints
// (see ParseQuotaHints) into per-key state. When the server reports that the
// remaining quota for a key is exhausted, requests for that key are denied
// until the reported reset time, regardless of the inner limiter's opinion.
// When the server reports a limit smaller than the statically configured one
// and the inner limiter implements LimitUpdater, the key's effective limit is
// lowered accordingly.
type AdaptiveLimiter struct {
	inner     Limiter
	baseLimit int64
	overrides *lrucache.LRUCache[string, *quotaOverride]
}

type quotaOverride struct {
	mu           sync.Mutex
	limit        int64
	remaining    int
	hasRemaining bool
	resetAt      time.Time
}

// NewAdaptiveLimiter creates a new AdaptiveLimiter around the inner limiter
// configured with the given base rate. maxKeys bounds the per-key override store.
func NewAdaptiveLimiter(inner Limiter, maxRate Rate, maxKeys int) (*AdaptiveLimiter, error) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	overrides, err := lrucache.New[string, *quotaOverride](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("new LRU in-memory store for overrides: %w", err)
	}
	return &AdaptiveLimiter{
		inner:     inner,
		baseLimit: int64(maxRate.Count),
		overrides: overrides,
	}, nil
}

// Allow checks if the request should be allowed based on the rate limit and
// the last server-reported quota for the key.
func (l *AdaptiveLimiter) Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	ov, ok := l.overrides.Get(key)
	if !ok {
		return l.inner.Allow(ctx, key)
	}

	now := time.Now()

	ov.mu.Lock()
	if ov.hasRemaining && !ov.resetAt.IsZero() && now.After(ov.resetAt) {
		// The server-reported window is over, the hint is stale.
		ov.hasRemaining = false
	}
	if ov.hasRemaining && ov.remaining <= 0 {
		retryAfter = time.Until(ov.resetAt)
		if retryAfter < 0 {
			retryAfter = 0
		}
		ov.mu.Unlock()
		return false, retryAfter, nil
	}
	ov.mu.Unlock()

	allow, retryAfter, err = l.inner.Allow(ctx, key)
	if err != nil || !allow {
		return allow, retryAfter, err
	}

	ov.mu.Lock()
	if ov.hasRemaining && ov.remaining > 0 {
		ov.remaining--
	}
	ov.mu.Unlock()
	return true, 0, nil
}

// Update merges server-reported quota hints into the key's state.
func (l *AdaptiveLimiter) Update(key string, hints QuotaHints) {
	if !hints.HasLimit && !hints.HasRemaining && !hints.HasReset {
		return
	}

	ov, _ := l.overrides.GetOrAdd(key, func() *quotaOverride { return &quotaOverride{limit: l.baseLimit} })

	ov.mu.Lock()
	if hints.HasReset {
		ov.resetAt = time.Now().Add(hints.ResetAfter)
	}
	if hints.HasRemaining {
		ov.remaining = hints.Remaining
		ov.hasRemaining = true
	}
	var newLimit int64
	if hints.HasLimit {
		newLimit = int64(hints.Limit)
		if newLimit > l.baseLimit {
			// Never exceed the statically configured limit, the hint is advisory.
			newLimit = l.baseLimit
		}
	} else {
		// No limit in the last response, restore the configured value.
		newLimit = l.baseLimit
	}
	limitChanged := newLimit != ov.limit
	ov.limit = newLimit
	ov.mu.Unlock()

	if limitChanged {
		if updater, ok := l.inner.(LimitUpdater); ok {
			updater.SetLimit(key, newLimit)
		}
	}
}
