package cache

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Bounded is a capacity-limited key/value store that evicts the least recently
// written entry once the capacity is exceeded. Reads do not affect eviction
// order, so eviction is fully determined by the sequence of writes.
//
// Bounded is not safe for concurrent use; owners guard it with their own lock.
type Bounded[K comparable, V any] struct {
	entries  *simplelru.LRU[K, V]
	capacity int
	onEvict  func(K, V)
}

// BoundedOption configures a Bounded cache.
type BoundedOption[K comparable, V any] func(*Bounded[K, V])

// WithEvictionHook registers fn to observe capacity evictions. Explicit
// removals are not reported.
func WithEvictionHook[K comparable, V any](fn func(K, V)) BoundedOption[K, V] {
	return func(b *Bounded[K, V]) {
		b.onEvict = fn
	}
}

// NewBounded creates a cache holding at most capacity entries.
func NewBounded[K comparable, V any](capacity int, opts ...BoundedOption[K, V]) (*Bounded[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be greater than 0, got %d", capacity)
	}

	b := &Bounded[K, V]{capacity: capacity}
	for _, opt := range opts {
		opt(b)
	}

	lru, err := simplelru.NewLRU[K, V](capacity, nil)
	if err != nil {
		return nil, err
	}
	b.entries = lru
	return b, nil
}

// Get returns the value for key without changing its eviction position.
func (b *Bounded[K, V]) Get(key K) (V, bool) {
	return b.entries.Peek(key)
}

// Contains reports whether key is present.
func (b *Bounded[K, V]) Contains(key K) bool {
	return b.entries.Contains(key)
}

// Set inserts or overwrites key, making it the most recently written entry,
// and reports whether an older entry was evicted to stay within capacity.
func (b *Bounded[K, V]) Set(key K, value V) bool {
	if b.entries.Contains(key) || b.entries.Len() < b.capacity {
		b.entries.Add(key, value)
		return false
	}

	oldKey, oldValue, _ := b.entries.GetOldest()
	evicted := b.entries.Add(key, value)
	if evicted && b.onEvict != nil {
		b.onEvict(oldKey, oldValue)
	}
	return evicted
}

// Remove deletes key and reports whether it was present.
func (b *Bounded[K, V]) Remove(key K) bool {
	return b.entries.Remove(key)
}

// Len returns the number of entries currently held.
func (b *Bounded[K, V]) Len() int { return b.entries.Len() }

// IsEmpty reports whether the cache holds no entries.
func (b *Bounded[K, V]) IsEmpty() bool { return b.entries.Len() == 0 }

// Capacity returns the maximum number of entries kept before eviction.
func (b *Bounded[K, V]) Capacity() int { return b.capacity }

// Keys returns the keys from least to most recently written.
func (b *Bounded[K, V]) Keys() []K {
	return b.entries.Keys()
}

// Purge drops every entry.
func (b *Bounded[K, V]) Purge() {
	b.entries.Purge()
}
