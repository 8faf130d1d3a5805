/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-httpresilience/taggedcache"
)

func TestRequestTypeContext(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, "", GetRequestTypeFromContext(ctx))

	ctx = NewContextWithRequestType(ctx, "auth-service")
	require.Equal(t, "auth-service", GetRequestTypeFromContext(ctx))
}

func TestIdempotentHintContext(t *testing.T) {
	ctx := context.Background()
	require.False(t, GetIdempotentHintFromContext(ctx))

	require.True(t, GetIdempotentHintFromContext(NewContextWithIdempotentHint(ctx, true)))
	require.False(t, GetIdempotentHintFromContext(NewContextWithIdempotentHint(ctx, false)))
}

func TestCacheDirectivesContext(t *testing.T) {
	ctx := context.Background()
	_, ok := GetCacheDirectivesFromContext(ctx)
	require.False(t, ok)

	want := CacheDirectives{
		Key:  taggedcache.Key{"users", "42"},
		TTL:  time.Minute,
		Tags: []string{"users", "profiles"},
	}
	got, ok := GetCacheDirectivesFromContext(NewContextWithCacheDirectives(ctx, want))
	require.True(t, ok)
	require.Equal(t, want, got)
}
