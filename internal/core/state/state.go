// Package state holds the process-wide server state shared by every
// connection and by the replica link.
package state

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/respkv-go/internal/core/domain"
)

// Store defines the keyspace operations the server needs.
type Store interface {
	// Get returns the value for key if it is logically present.
	Get(key []byte) ([]byte, bool)

	// Set stores value under key, replacing value and expiry, and returns
	// the previous logically-present value.
	Set(key, value []byte, expiresAt time.Time) ([]byte, bool)

	// Len returns the number of stored entries.
	Len() int
}

// State is created once at startup and never destroyed while the process
// runs. It is safe for concurrent use.
type State struct {
	role       domain.Role
	runID      string
	offset     atomic.Int64
	listenPort atomic.Int32
	store      Store
}

// Option configures the State.
type Option func(*State)

// WithRole sets the replication role. The default is primary.
func WithRole(role domain.Role) Option {
	return func(s *State) {
		s.role = role
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(s *State) {
		s.runID = id
	}
}

// New creates the server state owning store.
func New(store Store, opts ...Option) *State {
	s := &State{
		role:  domain.PrimaryRole(),
		runID: NewRunID(),
		store: store,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewRunID returns a fresh 36-character replication id.
func NewRunID() string {
	return uuid.NewString()
}

// Role returns the replication role.
func (s *State) Role() domain.Role {
	return s.role
}

// RunID returns the replication id, stable for the process lifetime.
func (s *State) RunID() string {
	return s.runID
}

// Offset returns the replication offset.
func (s *State) Offset() int64 {
	return s.offset.Load()
}

// SetListenPort records the port the server accepts connections on, once
// the listener is bound.
func (s *State) SetListenPort(port int) {
	s.listenPort.Store(int32(port))
}

// ListenPort returns the port announced to a primary during the handshake.
// It is zero until SetListenPort is called.
func (s *State) ListenPort() int {
	return int(s.listenPort.Load())
}

// Store returns the keyspace.
func (s *State) Store() Store {
	return s.store
}
