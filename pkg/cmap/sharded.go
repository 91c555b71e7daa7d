package cmap

import (
	"math/rand"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe map sharded by a murmur3 hash of the key.
//
// Every single-key operation holds exactly one shard lock for its whole
// duration, so it is atomic with respect to any other operation on that key.
type Map[K ~string, V any] struct {
	shards []*shard[K, V]
	mask   uint64
	seed   uint32
}

type shard[K ~string, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a map with DefaultShardCount shards.
func New[K ~string, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount)
}

// NewWithShards creates a map with n shards. n must be a power of two;
// anything else falls back to DefaultShardCount.
func NewWithShards[K ~string, V any](n int) *Map[K, V] {
	if n <= 0 || n&(n-1) != 0 {
		n = DefaultShardCount
	}

	m := &Map[K, V]{
		shards: make([]*shard[K, V], n),
		mask:   uint64(n - 1),
		seed:   rand.Uint32(),
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[murmur3.Sum64WithSeed([]byte(key), m.seed)&m.mask]
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Swap stores value and returns the previous value, if any.
func (m *Map[K, V]) Swap(key K, value V) (previous V, loaded bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, loaded = s.items[key]
	s.items[key] = value
	return previous, loaded
}

// Compute atomically inspects and replaces the value for key.
//
// fn receives the current value and whether it exists. It returns the new
// value and whether the key should be deleted instead. Compute returns the
// value left in the map and whether one remains.
func (m *Map[K, V]) Compute(key K, fn func(old V, loaded bool) (value V, remove bool)) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	old, loaded := s.items[key]
	value, remove := fn(old, loaded)
	if remove {
		delete(s.items, key)
		var zero V
		return zero, false
	}
	s.items[key] = value
	return value, true
}

// Count returns the total number of items.
func (m *Map[K, V]) Count() int {
	n := 0
	for _, l := range m.Lens() {
		n += l
	}
	return n
}

// Lens returns the number of items in each shard, indexed by shard. Shards
// are locked one at a time, so the result is not a consistent snapshot.
func (m *Map[K, V]) Lens() []int {
	lens := make([]int, len(m.shards))
	for i, s := range m.shards {
		s.mu.RLock()
		lens[i] = len(s.items)
		s.mu.RUnlock()
	}
	return lens
}
