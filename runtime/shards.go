package runtime

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShardCount = 32

// shards is a string keyed map split into independently locked buckets.
// Operations on different keys rarely contend, operations on one key are linearizable.
type shards[V any] struct {
	buckets []*bucket[V]
}

type bucket[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

func newShards[V any](count int) *shards[V] {
	if count <= 0 {
		count = defaultShardCount
	}
	s := &shards[V]{buckets: make([]*bucket[V], count)}
	for i := range s.buckets {
		s.buckets[i] = &bucket[V]{items: make(map[string]V)}
	}
	return s
}

func (s *shards[V]) bucket(key string) *bucket[V] {
	return s.buckets[xxhash.Sum64String(key)%uint64(len(s.buckets))]
}

func (s *shards[V]) Load(key string) (V, bool) {
	b := s.bucket(key)
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.items[key]
	return v, ok
}

func (s *shards[V]) Store(key string, v V) {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[key] = v
}

// Swap stores v and returns the value it replaced.
func (s *shards[V]) Swap(key string, v V) (V, bool) {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	previous, loaded := b.items[key]
	b.items[key] = v
	return previous, loaded
}

func (s *shards[V]) Delete(key string) {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, key)
}

// CompareAndDelete removes the entry only when match accepts the current value.
func (s *shards[V]) CompareAndDelete(key string, match func(V) bool) bool {
	b := s.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.items[key]
	if !ok || !match(v) {
		return false
	}
	delete(b.items, key)
	return true
}

func (s *shards[V]) Len() int {
	total := 0
	for _, b := range s.buckets {
		b.mu.RLock()
		total += len(b.items)
		b.mu.RUnlock()
	}
	return total
}

// Range visits every entry, one bucket at a time. fn must not call back into s.
func (s *shards[V]) Range(fn func(key string, v V) bool) {
	for _, b := range s.buckets {
		b.mu.RLock()
		for k, v := range b.items {
			if !fn(k, v) {
				b.mu.RUnlock()
				return
			}
		}
		b.mu.RUnlock()
	}
}
