// Package sync holds concurrency helpers shared by in-memory stores.
package sync

import "sync"

const shardCount = 32

// ShardedMap is a string-keyed map split across shards so unrelated keys do
// not contend on one lock. Update runs its callback under the key's shard lock.
type ShardedMap[V any] struct {
	shards [shardCount]shard[V]
}

type shard[V any] struct {
	mu    sync.Mutex
	items map[string]V
}

// NewShardedMap creates an empty map.
func NewShardedMap[V any]() *ShardedMap[V] {
	m := &ShardedMap[V]{}
	for i := range m.shards {
		m.shards[i].items = make(map[string]V)
	}
	return m
}

// Get returns the value stored for key.
func (m *ShardedMap[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

// Update replaces the value for key with fn's result. fn receives the current
// value and whether it exists; returning keep=false deletes the key.
func (m *ShardedMap[V]) Update(key string, fn func(current V, exists bool) (next V, keep bool)) V {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.items[key]
	next, keep := fn(current, exists)
	if keep {
		s.items[key] = next
	} else {
		delete(s.items, key)
	}
	return next
}

// Delete removes key.
func (m *ShardedMap[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Len counts entries across all shards.
func (m *ShardedMap[V]) Len() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.Lock()
		n += len(m.shards[i].items)
		m.shards[i].mu.Unlock()
	}
	return n
}

func (m *ShardedMap[V]) shardFor(key string) *shard[V] {
	return &m.shards[shardIndex(key)]
}

// ShardedMutex locks by key. Keys that hash to the same shard share a lock,
// so holders must not take a second key while holding one.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

func (m *ShardedMutex) Lock(key string) {
	m.shards[shardIndex(key)].Lock()
}

func (m *ShardedMutex) Unlock(key string) {
	m.shards[shardIndex(key)].Unlock()
}

// shardIndex is a djb2-style hash. Empty keys land on shard 0.
func shardIndex(key string) uint32 {
	var h uint32
	for i := 0; i < len(key); i++ {
		h = h*31 + uint32(key[i])
	}
	return h % shardCount
}
