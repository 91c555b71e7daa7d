package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yndnr/respkv-go/internal/protocol/resp"
)

// ErrNotConnected is returned when no server address is known.
var ErrNotConnected = errors.New("not connected")

// Manager holds the current server connection.
type Manager struct {
	mu      sync.Mutex
	addr    string
	current *Client
	timeout time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the dial and request timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// NewManager creates a new connection manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetAddr records the server to use without dialing; the first command
// connects.
func (m *Manager) SetAddr(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addr = addr
}

// Addr returns the current server address.
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

// Connect dials addr and makes it the current connection. The previous
// connection is kept if dialing fails.
func (m *Manager) Connect(ctx context.Context, addr string) error {
	c, err := Dial(ctx, addr, m.timeout)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		_ = m.current.Close()
	}
	m.addr = addr
	m.current = c
	return nil
}

// Disconnect closes the current connection. The address is kept so the
// next command reconnects.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}

// Current returns the current connection, or nil.
func (m *Manager) Current() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsConnected returns true if a connection is open.
func (m *Manager) IsConnected() bool {
	return m.Current() != nil
}

// Client returns the current connection, dialing the known address if
// there is none.
func (m *Manager) Client(ctx context.Context) (*Client, error) {
	m.mu.Lock()
	c, addr := m.current, m.addr
	m.mu.Unlock()

	if c != nil {
		return c, nil
	}
	if addr == "" {
		return nil, ErrNotConnected
	}
	if err := m.Connect(ctx, addr); err != nil {
		return nil, err
	}
	return m.Current(), nil
}

// Do runs one command on the current connection. A transport failure drops
// the connection.
func (m *Manager) Do(ctx context.Context, args ...string) (resp.Value, error) {
	c, err := m.Client(ctx)
	if err != nil {
		return resp.Value{}, err
	}

	v, err := c.Do(ctx, args...)
	if err != nil && !errors.Is(err, ErrEmptyCommand) {
		m.drop(c)
	}
	return v, err
}

// ReadSnapshot reads a snapshot from the current connection.
func (m *Manager) ReadSnapshot(ctx context.Context) ([]byte, error) {
	c := m.Current()
	if c == nil {
		return nil, ErrNotConnected
	}
	payload, err := c.ReadSnapshot(ctx)
	if err != nil {
		m.drop(c)
	}
	return payload, err
}

// drop closes c if it is still the current connection.
func (m *Manager) drop(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == c {
		_ = c.Close()
		m.current = nil
	}
}
