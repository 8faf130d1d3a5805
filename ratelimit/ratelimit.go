/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"time"
)

// DefaultMaxKeys limits how many per-key limiters are kept in memory.
const DefaultMaxKeys = 1000

// Rate describes the frequency of requests: at most Count requests per Duration.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Limiter interface defines the rate limiting contract.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// LimitUpdater is implemented by limiters that can change the effective limit
// of a particular key at runtime (used by the server feedback loop).
type LimitUpdater interface {
	SetLimit(key string, limit int64)
}
