/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides client-side rate limiting for outgoing requests,
// tracked independently per logical group (key).
//
// Three algorithms are available behind the common Limiter interface: sliding
// window, leaky bucket (GCRA) and token bucket. Per-key limiter state is held
// in a bounded LRU store for memory efficiency.
//
// The package also implements the server feedback loop: advisory quota values
// reported in response headers (the combined RateLimit header or the
// X-RateLimit-* / X-Rate-Limit-* conventions) can be merged into per-key state
// via AdaptiveLimiter, letting the client adapt to server-communicated quotas
// instead of relying solely on statically configured values.
package ratelimit
