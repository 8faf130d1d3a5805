/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package taggedcache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// KeySeparator is used for joining key segments into the canonical string form.
const KeySeparator = ":"

// Key is an ordered sequence of plain string segments identifying a cache entry.
// Segments are joined with KeySeparator to form the canonical string identity,
// which makes prefix-based invalidation meaningful.
type Key []string

// String returns the canonical string form of the key.
func (k Key) String() string {
	if len(k) == 1 {
		return k[0]
	}
	return strings.Join(k, KeySeparator)
}

type cacheEntry[V any] struct {
	value          V
	tags           []string
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// TaggedCache represents a cache with TTL expiration, prefix-based and
// tag-based invalidation.
type TaggedCache[V any] struct {
	defaultTTL time.Duration

	mu       sync.RWMutex
	entries  map[string]*cacheEntry[V]
	tagIndex map[string]map[string]struct{} // tag -> set of canonical keys

	metricsCollector MetricsCollector
}

// Options represents options for the cache.
type Options struct {
	// DefaultTTL is the TTL used by Set when a non-positive TTL is passed.
	// Zero means entries don't expire by default.
	DefaultTTL time.Duration
}

// New creates a new TaggedCache with the provided metrics collector.
func New[V any](metricsCollector MetricsCollector) (*TaggedCache[V], error) {
	return NewWithOpts[V](metricsCollector, Options{})
}

// NewWithOpts creates a new TaggedCache with the provided metrics collector and options.
// Metrics collector may be nil, in this case metrics will be disabled.
func NewWithOpts[V any](metricsCollector MetricsCollector, opts Options) (*TaggedCache[V], error) {
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("defaultTTL must be greater or equal to 0 (no expiration)")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetricsCollector
	}
	return &TaggedCache[V]{
		defaultTTL:       opts.DefaultTTL,
		entries:          make(map[string]*cacheEntry[V]),
		tagIndex:         make(map[string]map[string]struct{}),
		metricsCollector: metricsCollector,
	}, nil
}

// Set stores a value under the given key with the provided TTL and tags.
// If an entry already exists under the key, its old tag associations are fully
// removed before the new ones are indexed (tags are replaced, not merged).
// Non-positive TTL means the default TTL is used.
func (c *TaggedCache[V]) Set(key Key, value V, ttl time.Duration, tags ...string) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	ck := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[ck]; ok {
		c.dropTagsLocked(ck, old.tags)
	}
	c.entries[ck] = &cacheEntry[V]{
		value:          value,
		tags:           append([]string(nil), tags...),
		expiresAt:      expiresAt,
		lastAccessedAt: time.Now(),
	}
	for _, tag := range tags {
		keys, ok := c.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tagIndex[tag] = keys
		}
		keys[ck] = struct{}{}
	}
	c.metricsCollector.SetAmount(len(c.entries))
}

// Get returns a value from the cache by the provided key.
// An expired entry is removed (together with its tag associations) as a side
// effect of the read, and a miss is reported.
func (c *TaggedCache[V]) Get(key Key) (value V, ok bool) {
	ck := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ck]
	if !ok {
		c.metricsCollector.IncMisses()
		return value, false
	}
	if !entry.expiresAt.IsZero() && entry.expiresAt.Before(time.Now()) {
		c.removeLocked(ck, entry)
		c.metricsCollector.IncExpirations()
		c.metricsCollector.IncMisses()
		return value, false
	}
	entry.lastAccessedAt = time.Now()
	c.metricsCollector.IncHits()
	return entry.value, true
}

// Delete removes the entry stored under the exact key and cleans up its tag
// associations. It reports whether the entry was present.
func (c *TaggedCache[V]) Delete(key Key) bool {
	ck := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ck]
	if !ok {
		return false
	}
	c.removeLocked(ck, entry)
	return true
}

// DeletePrefix removes every entry whose key starts with the provided prefix
// and returns the number of removed entries. Matching respects segment
// boundaries: the prefix {"users", "4"} does not match the key {"users", "42"}.
func (c *TaggedCache[V]) DeletePrefix(prefix Key) int {
	cp := prefix.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for ck, entry := range c.entries {
		if ck == cp || strings.HasPrefix(ck, cp+KeySeparator) {
			c.removeLocked(ck, entry)
			removed++
		}
	}
	if removed > 0 {
		c.metricsCollector.AddInvalidations(removed)
	}
	return removed
}

// DeleteByTag removes every entry currently indexed under the given tag and
// returns the number of removed entries. Each removed entry is also
// de-associated from every other tag it held.
func (c *TaggedCache[V]) DeleteByTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.tagIndex[tag]
	if !ok {
		return 0
	}
	removed := 0
	for ck := range keys {
		if entry, exists := c.entries[ck]; exists {
			c.removeLocked(ck, entry)
			removed++
		}
	}
	if removed > 0 {
		c.metricsCollector.AddInvalidations(removed)
	}
	return removed
}

// Tags returns a sorted list of tags that have at least one member entry.
func (c *TaggedCache[V]) Tags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tags := make([]string, 0, len(c.tagIndex))
	for tag := range c.tagIndex {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// EntryTags returns the tags attached to the entry stored under the key.
func (c *TaggedCache[V]) EntryTags(key Key) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key.String()]
	if !ok {
		return nil
	}
	return append([]string(nil), entry.tags...)
}

// Clear drops all entries and the entire tag index.
func (c *TaggedCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry[V])
	c.tagIndex = make(map[string]map[string]struct{})
	c.metricsCollector.SetAmount(0)
}

// Len returns the number of entries in the cache, including not yet collected
// expired ones.
func (c *TaggedCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// removeLocked deletes the entry and keeps the tag index consistent:
// a tag whose last member is removed disappears from the index.
func (c *TaggedCache[V]) removeLocked(ck string, entry *cacheEntry[V]) {
	delete(c.entries, ck)
	c.dropTagsLocked(ck, entry.tags)
	c.metricsCollector.SetAmount(len(c.entries))
}

func (c *TaggedCache[V]) dropTagsLocked(ck string, tags []string) {
	for _, tag := range tags {
		keys, ok := c.tagIndex[tag]
		if !ok {
			continue
		}
		delete(keys, ck)
		if len(keys) == 0 {
			delete(c.tagIndex, tag)
		}
	}
}
