// Package cmap provides the sharded concurrent map behind the keyspace.
//
//   - Sharding: power-of-two shard count, one RWMutex per shard
//   - Hashing: murmur3 with a per-map random seed picks the shard
//   - Atomic read-modify-write: Swap and Compute hold one shard lock
//
// Usage:
//
//	m := cmap.NewWithShards[string, entry](32)
//	prev, loaded := m.Swap("key", e)
//	val, ok := m.Get("key")
package cmap
