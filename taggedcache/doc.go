/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package taggedcache provides an in-memory cache with TTL expiration and two
// independent invalidation axes layered over one flat store:
//
//   - hierarchical invalidation by key prefix (keys are ordered segment
//     sequences canonicalized by colon-joining);
//   - cross-cutting invalidation by tags attached to entries.
//
// Expired entries are removed lazily when they are accessed, there is no
// background sweep. The cache is safe for concurrent use and can report usage
// statistics via a pluggable metrics collector (Prometheus implementation is
// provided).
package taggedcache
