package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/yndnr/respkv-go/internal/protocol/resp"
)

// DefaultTimeout bounds dialing and each request.
const DefaultTimeout = 5 * time.Second

// ErrEmptyCommand is returned by Do when no arguments are given.
var ErrEmptyCommand = errors.New("connection: empty command")

// Client is a single RESP2 connection. It is not safe for concurrent use.
type Client struct {
	addr    string
	conn    net.Conn
	r       *resp.Reader
	w       *resp.Writer
	timeout time.Duration
}

// Dial connects to addr ("host:port"). A zero timeout disables deadlines.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return NewClient(conn, timeout), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, timeout time.Duration) *Client {
	return &Client{
		addr:    conn.RemoteAddr().String(),
		conn:    conn,
		r:       resp.NewReader(conn, resp.WithNullReplies()),
		w:       resp.NewWriter(conn),
		timeout: timeout,
	}
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends args as one command and returns the reply. Error replies are
// returned as values; the error reports transport and framing failures.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Value, error) {
	if len(args) == 0 {
		return resp.Value{}, ErrEmptyCommand
	}

	stop := c.bind(ctx)
	defer stop()

	if err := c.w.WriteCommand(args...); err != nil {
		return resp.Value{}, c.wrap(ctx, "send", err)
	}
	v, err := c.r.ReadValue()
	if err != nil {
		return resp.Value{}, c.wrap(ctx, "read reply", err)
	}
	return v, nil
}

// ReadSnapshot reads the snapshot payload that follows a FULLRESYNC reply.
func (c *Client) ReadSnapshot(ctx context.Context) ([]byte, error) {
	stop := c.bind(ctx)
	defer stop()

	payload, err := c.r.ReadSnapshot()
	if err != nil {
		return nil, c.wrap(ctx, "read snapshot", err)
	}
	return payload, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// bind applies the request timeout and aborts blocked I/O when ctx ends.
func (c *Client) bind(ctx context.Context) func() bool {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	_ = c.conn.SetDeadline(deadline)

	return context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
}

func (c *Client) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}
