// Package memory provides in-memory storage for respkv.
//
// It implements the keyspace using concurrent-safe data structures with
// sharded locking.
//
// Features:
//
//   - Sharded Storage: keys distributed across shards by murmur3 hash
//   - Lazy Expiry: expired entries are removed when they are next accessed
//   - Value Isolation: values are copied on the way in and out
//
// Thread Safety:
//
// All operations are thread-safe through fine-grained locking. A shard
// count of 1 serializes the whole keyspace behind one lock.
package memory
