/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"time"

	"github.com/acronis/go-httpresilience/taggedcache"
)

type ctxKey int

const (
	ctxKeyRequestType ctxKey = iota
	ctxKeyIdempotentHint
	ctxKeyCacheDirectives
)

func getStringFromContext(ctx context.Context, key ctxKey) string {
	value := ctx.Value(key)
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

// NewContextWithRequestType creates a new context with request type.
func NewContextWithRequestType(ctx context.Context, requestType string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestType, requestType)
}

// GetRequestTypeFromContext extracts request type from the context.
func GetRequestTypeFromContext(ctx context.Context) string {
	return getStringFromContext(ctx, ctxKeyRequestType)
}

// NewContextWithIdempotentHint returns a derived context that carries an "idempotent request" hint.
// When set to true, the request is considered idempotent even if it's not a GET/HEAD/OPTIONS request.
// Currently, this hint is used by RetryableRoundTripper to decide
// whether it's safe to retry unsafe methods like POST and PATCH on retriable server errors.
func NewContextWithIdempotentHint(ctx context.Context, isIdempotent bool) context.Context {
	return context.WithValue(ctx, ctxKeyIdempotentHint, isIdempotent)
}

// GetIdempotentHintFromContext extracts the "idempotent request" hint from context.
// Returns false when the key is not present. See NewContextWithIdempotentHint for details.
func GetIdempotentHintFromContext(ctx context.Context) bool {
	value := ctx.Value(ctxKeyIdempotentHint)
	if value == nil {
		return false
	}
	b, ok := value.(bool)
	return ok && b
}

// CacheDirectives carries per-request caching options consumed by CachingRoundTripper.
// They override the round tripper's defaults for a single request.
type CacheDirectives struct {
	// Disabled turns caching off for the request even if its method is cacheable.
	Disabled bool

	// Key overrides the default cache key (method + URL).
	Key taggedcache.Key

	// TTL overrides the default entry TTL. Zero means the default is used.
	TTL time.Duration

	// Tags are attached to the stored entry for grouped invalidation.
	Tags []string
}

// NewContextWithCacheDirectives returns a derived context carrying per-request caching options.
func NewContextWithCacheDirectives(ctx context.Context, directives CacheDirectives) context.Context {
	return context.WithValue(ctx, ctxKeyCacheDirectives, directives)
}

// GetCacheDirectivesFromContext extracts per-request caching options from the context.
func GetCacheDirectivesFromContext(ctx context.Context) (CacheDirectives, bool) {
	directives, ok := ctx.Value(ctxKeyCacheDirectives).(CacheDirectives)
	return directives, ok
}
