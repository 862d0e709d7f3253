// Package cache provides a small in-process cache with tag-based
// invalidation. Entries carry tags; invalidating a tag drops every entry
// tagged with it, which is how ledger commits push stale summaries out.
package cache

import (
	"sync"
	"time"
)

type item[T any] struct {
	data      T
	tags      []string
	expiresAt time.Time
}

// TagCache is a TTL cache whose entries can be evicted by tag. Safe for
// concurrent use.
type TagCache[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]*item[T]
	// byTag maps a tag to the keys carrying it.
	byTag map[string]map[string]struct{}
}

func NewTagCache[T any](ttl time.Duration) *TagCache[T] {
	return &TagCache[T]{
		ttl:   ttl,
		items: make(map[string]*item[T]),
		byTag: make(map[string]map[string]struct{}),
	}
}

// Get retrieves a value. Expired entries read as absent and are removed.
func (c *TagCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	it, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if time.Now().After(it.expiresAt) {
		c.remove(key, it)
		return zero, false
	}
	return it.data, true
}

// Set stores a value under the given tags, replacing any previous entry.
func (c *TagCache[T]) Set(key string, data T, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.items[key]; ok {
		c.remove(key, old)
	}
	c.items[key] = &item[T]{
		data:      data,
		tags:      tags,
		expiresAt: time.Now().Add(c.ttl),
	}
	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Invalidate drops every entry carrying any of the given tags and returns how
// many entries were evicted.
func (c *TagCache[T]) Invalidate(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for _, tag := range tags {
		for key := range c.byTag[tag] {
			if it, ok := c.items[key]; ok {
				c.remove(key, it)
				evicted++
			}
		}
	}
	return evicted
}

// Size returns the current number of entries.
func (c *TagCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanExpired removes every expired entry and returns how many were removed.
func (c *TagCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	cleaned := 0
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			c.remove(key, it)
			cleaned++
		}
	}
	return cleaned
}

// remove must be called with the lock held.
func (c *TagCache[T]) remove(key string, it *item[T]) {
	delete(c.items, key)
	for _, tag := range it.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}
