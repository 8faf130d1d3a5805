/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package taggedcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyString(t *testing.T) {
	require.Equal(t, "users:1", Key{"users", "1"}.String())
	require.Equal(t, "plain-key", Key{"plain-key"}.String())
	require.Equal(t, "", Key(nil).String())
}

func TestTaggedCacheSetGet(t *testing.T) {
	cache, err := New[string](nil)
	require.NoError(t, err)

	cache.Set(Key{"users", "1"}, "alice", time.Minute)
	value, ok := cache.Get(Key{"users", "1"})
	require.True(t, ok)
	require.Equal(t, "alice", value)

	_, ok = cache.Get(Key{"users", "2"})
	require.False(t, ok)
}

func TestTaggedCacheLazyExpiration(t *testing.T) {
	cache, err := New[string](nil)
	require.NoError(t, err)

	cache.Set(Key{"users", "1"}, "alice", 30*time.Millisecond, "users")
	time.Sleep(50 * time.Millisecond)

	_, ok := cache.Get(Key{"users", "1"})
	require.False(t, ok)
	require.Equal(t, 0, cache.Len())

	// Tag index must be cleaned up together with the expired entry.
	require.Empty(t, cache.Tags())
	require.Equal(t, 0, cache.DeleteByTag("users"))
}

func TestTaggedCacheSetReplacesTags(t *testing.T) {
	cache, err := New[string](nil)
	require.NoError(t, err)

	cache.Set(Key{"users", "1"}, "alice", time.Minute, "users", "session")
	cache.Set(Key{"users", "1"}, "alice-v2", time.Minute, "users")

	// Old tag associations are dropped, not merged.
	require.Equal(t, []string{"users"}, cache.Tags())
	require.Equal(t, []string{"users"}, cache.EntryTags(Key{"users", "1"}))
	require.Equal(t, 0, cache.DeleteByTag("session"))

	value, ok := cache.Get(Key{"users", "1"})
	require.True(t, ok)
	require.Equal(t, "alice-v2", value)
}

func TestTaggedCacheDelete(t *testing.T) {
	cache, err := New[int](nil)
	require.NoError(t, err)

	cache.Set(Key{"users", "1"}, 1, time.Minute, "users")
	require.True(t, cache.Delete(Key{"users", "1"}))
	require.False(t, cache.Delete(Key{"users", "1"}))
	require.Empty(t, cache.Tags())
}

func TestTaggedCacheDeletePrefix(t *testing.T) {
	cache, err := New[int](nil)
	require.NoError(t, err)

	cache.Set(Key{"users", "1"}, 1, time.Minute, "users")
	cache.Set(Key{"users", "2"}, 2, time.Minute, "users")
	cache.Set(Key{"posts", "1"}, 3, time.Minute, "posts")

	require.Equal(t, 2, cache.DeletePrefix(Key{"users"}))
	require.Equal(t, 1, cache.Len())

	_, ok := cache.Get(Key{"posts", "1"})
	require.True(t, ok)
	require.Equal(t, []string{"posts"}, cache.Tags())
}

func TestTaggedCacheDeletePrefixSegmentBoundary(t *testing.T) {
	cache, err := New[int](nil)
	require.NoError(t, err)

	cache.Set(Key{"users", "42"}, 1, time.Minute)
	cache.Set(Key{"users", "4", "profile"}, 2, time.Minute)

	// {"users", "4"} must not match {"users", "42"}.
	require.Equal(t, 1, cache.DeletePrefix(Key{"users", "4"}))
	_, ok := cache.Get(Key{"users", "42"})
	require.True(t, ok)
}

func TestTaggedCacheDeleteByTagIsolation(t *testing.T) {
	cache, err := New[string](nil)
	require.NoError(t, err)

	cache.Set(Key{"users", "1"}, "alice", time.Minute, "users", "session")
	cache.Set(Key{"posts", "1"}, "hello", time.Minute, "posts", "session")

	require.Equal(t, 1, cache.DeleteByTag("users"))
	_, ok := cache.Get(Key{"users", "1"})
	require.False(t, ok)
	_, ok = cache.Get(Key{"posts", "1"})
	require.True(t, ok)

	require.Equal(t, 1, cache.DeleteByTag("session"))
	_, ok = cache.Get(Key{"posts", "1"})
	require.False(t, ok)

	require.Empty(t, cache.Tags())
	require.Equal(t, 0, cache.Len())
}

func TestTaggedCacheTags(t *testing.T) {
	cache, err := New[int](nil)
	require.NoError(t, err)

	cache.Set(Key{"a"}, 1, time.Minute, "x", "y")
	cache.Set(Key{"b"}, 2, time.Minute, "y", "z")
	require.Equal(t, []string{"x", "y", "z"}, cache.Tags())

	require.True(t, cache.Delete(Key{"a"}))
	require.Equal(t, []string{"y", "z"}, cache.Tags())

	require.Nil(t, cache.EntryTags(Key{"a"}))
	require.Equal(t, []string{"y", "z"}, cache.EntryTags(Key{"b"}))
}

func TestTaggedCacheClear(t *testing.T) {
	cache, err := New[int](nil)
	require.NoError(t, err)

	cache.Set(Key{"a"}, 1, time.Minute, "x")
	cache.Set(Key{"b"}, 2, time.Minute, "y")
	cache.Clear()

	require.Equal(t, 0, cache.Len())
	require.Empty(t, cache.Tags())
	_, ok := cache.Get(Key{"a"})
	require.False(t, ok)
}

func TestTaggedCacheDefaultTTL(t *testing.T) {
	cache, err := NewWithOpts[string](nil, Options{DefaultTTL: 30 * time.Millisecond})
	require.NoError(t, err)

	cache.Set(Key{"a"}, "v", 0)
	_, ok := cache.Get(Key{"a"})
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = cache.Get(Key{"a"})
	require.False(t, ok)

	_, err = NewWithOpts[string](nil, Options{DefaultTTL: -1})
	require.Error(t, err)
}

func TestTaggedCacheMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()
	cache, err := New[string](pm)
	require.NoError(t, err)

	cache.Set(Key{"a"}, "v", time.Minute, "x")
	_, ok := cache.Get(Key{"a"})
	require.True(t, ok)
	_, ok = cache.Get(Key{"missing"})
	require.False(t, ok)
	require.Equal(t, 1, cache.DeleteByTag("x"))
}
