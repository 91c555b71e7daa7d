// Package memory provides the in-memory keyspace for respkv.
//
// It implements the keyed store using a sharded concurrent map with
// lazy, access-time expiry.
package memory

import (
	"time"

	"github.com/yndnr/respkv-go/pkg/cmap"
)

// DefaultShardCount is the default number of keyspace shards.
const DefaultShardCount = cmap.DefaultShardCount

// entry is one stored value and its optional absolute expiry.
type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// expiredAt reports whether the entry is logically absent at now.
func (e entry) expiredAt(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is a concurrent-safe key-value store with lazy expiry.
//
// Every Get and Set is atomic with respect to other operations on the
// same key.
type Store struct {
	entries   *cmap.Map[string, entry]
	now       func() time.Time
	onExpired func()
}

// Option configures the Store.
type Option func(*Store)

// WithShardCount sets the number of keyspace shards. Must be a power of 2.
func WithShardCount(n int) Option {
	return func(s *Store) {
		s.entries = cmap.NewWithShards[string, entry](n)
	}
}

// WithClock replaces the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithExpiredHook registers fn to be called each time an expired entry
// is removed.
func WithExpiredHook(fn func()) Option {
	return func(s *Store) {
		s.onExpired = fn
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: cmap.New[string, entry](),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns a copy of the value stored under key.
//
// An expired entry is removed as a side effect and reported absent.
func (s *Store) Get(key []byte) ([]byte, bool) {
	k := string(key)
	e, ok := s.entries.Get(k)
	if !ok {
		return nil, false
	}

	now := s.now()
	if !e.expiredAt(now) {
		return clone(e.value), true
	}

	// Re-check under the shard lock: a concurrent Set may have replaced it.
	var removed bool
	cur, ok := s.entries.Compute(k, func(old entry, loaded bool) (entry, bool) {
		if !loaded {
			return entry{}, true
		}
		if old.expiredAt(now) {
			removed = true
			return entry{}, true
		}
		return old, false
	})
	if removed && s.onExpired != nil {
		s.onExpired()
	}
	if !ok {
		return nil, false
	}
	return clone(cur.value), true
}

// Set stores value under key, replacing any previous value and expiry.
//
// A zero expiresAt stores the value without expiry. Set returns the
// previous value if one was logically present.
func (s *Store) Set(key, value []byte, expiresAt time.Time) ([]byte, bool) {
	now := s.now()
	next := entry{value: clone(value), expiresAt: expiresAt}

	var previous []byte
	old, loaded := s.entries.Swap(string(key), next)
	present := loaded && !old.expiredAt(now)
	if present {
		previous = old.value
	}
	expired := loaded && !present

	if expired && s.onExpired != nil {
		s.onExpired()
	}
	return previous, present
}

// Len returns the number of physically stored entries, including
// expired entries that have not been accessed since they expired.
func (s *Store) Len() int {
	return s.entries.Count()
}

// ShardLens returns the number of stored entries per shard.
func (s *Store) ShardLens() []int {
	return s.entries.Lens()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
