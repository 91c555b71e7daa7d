package redisserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/yndnr/respkv-go/internal/core/domain"
	"github.com/yndnr/respkv-go/internal/core/state"
	"github.com/yndnr/respkv-go/internal/protocol/resp"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
	"github.com/yndnr/respkv-go/internal/telemetry/metric"
)

// Config holds the server configuration.
type Config struct {
	// Address is the TCP address to listen on.
	Address string
	// ReadTimeout bounds reading one command once its first byte arrived.
	// Zero disables it.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply. Zero disables it.
	WriteTimeout time.Duration
	// IdleTimeout bounds the wait for the next command. Zero disables it.
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per connection.
	// Set to 0 to disable rate limiting.
	RateLimit int
	// MaxNesting limits array nesting in requests.
	MaxNesting int
}

// DefaultConfig returns the default configuration. Timeouts and rate
// limiting are disabled.
func DefaultConfig() *Config {
	return &Config{
		Address:    "127.0.0.1:6379",
		MaxNesting: resp.DefaultMaxDepth,
	}
}

// Server accepts client connections and serves commands on them.
type Server struct {
	cfg     *Config
	handler *CommandHandler
	logger  *slog.Logger
	metrics *metric.Registry

	ln      net.Listener
	conns   *xsync.MapOf[string, *Conn]
	running atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records connection and command metrics into m.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Conn represents a single client connection.
type Conn struct {
	id      string
	netConn net.Conn
	r       *resp.Reader
	w       *resp.Writer
	limiter *rate.Limiter

	closed atomic.Bool
}

func newConn(c net.Conn, cfg *Config) *Conn {
	conn := &Conn{
		id:      ulid.Make().String(),
		netConn: c,
		r:       resp.NewReader(c, resp.WithMaxDepth(cfg.MaxNesting)),
		w:       resp.NewWriter(c),
	}
	if cfg.RateLimit > 0 {
		conn.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	}
	return conn
}

// ID returns the connection identifier.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// New creates a new server executing commands against st.
func New(cfg *Config, st *state.State, logger *slog.Logger, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		conns:  xsync.NewMapOf[string, *Conn](),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = NewCommandHandler(st, logger)

	return s
}

// Start binds the listener and serves connections in the background.
// A bind failure is returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Address, err)
	}
	s.ln = ln
	s.running.Store(true)

	s.logger.Info("listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("accept loop stopped", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ConnCount returns the number of open connections.
func (s *Server) ConnCount() int {
	return s.conns.Size()
}

// Shutdown stops accepting, closes every open connection and waits for
// connection goroutines to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}

	s.conns.Range(func(_ string, c *Conn) bool {
		_ = c.Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Warn("temporary accept error", "error", err)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, c)
		}()
	}
}

// ServeConn serves a connection accepted by another listener, such as the
// local socket, until it closes. The connection is tracked like the ones
// accepted by Start and is closed by Shutdown.
func (s *Server) ServeConn(ctx context.Context, nc net.Conn) {
	conn := newConn(nc, s.cfg)
	s.conns.Store(conn.id, conn)
	s.metrics.ConnectionOpened()
	defer func() {
		s.conns.Delete(conn.id)
		s.metrics.ConnectionClosed()
	}()

	s.serveConn(ctx, conn)
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer c.Close()

	ctx = logger.WithConnID(ctx, c.id)
	log := s.logger.With("remote", remoteString(c.RemoteAddr()))
	log.DebugContext(ctx, "connection accepted")

	for {
		// Wait for the first byte under the idle timeout.
		if err := c.netConn.SetReadDeadline(deadline(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if err := c.r.Wait(); err != nil {
			logReadError(ctx, log, err)
			return
		}

		// The rest of the command must arrive within the read timeout.
		if err := c.netConn.SetReadDeadline(deadline(s.cfg.ReadTimeout)); err != nil {
			return
		}
		v, err := c.r.ReadValue()
		if err != nil {
			if errors.Is(err, resp.ErrProtocol) {
				s.metrics.IncProtocolErrors()
				detail := strings.TrimPrefix(err.Error(), resp.ErrProtocol.Error()+": ")
				perr := domain.ErrProtocol.WithDetails(detail).WithCause(err)
				log.WarnContext(ctx, "protocol error", "error", perr)
				_ = s.write(c, resp.Error(perr.Reply()))
				return
			}
			logReadError(ctx, log, err)
			return
		}

		closeConn, err := s.Handle(ctx, c, v)
		if err != nil {
			log.DebugContext(ctx, "write failed", "error", err)
			return
		}
		if closeConn {
			log.DebugContext(ctx, "connection closed by client request")
			return
		}
	}
}

// Handle executes one decoded request on c and writes its reply. It reports
// whether the connection should be closed afterwards; a non-nil error means
// the reply could not be written.
func (s *Server) Handle(ctx context.Context, c *Conn, v resp.Value) (bool, error) {
	start := time.Now()

	name, args, err := parseRequest(v)
	var res *Result
	if err == nil {
		if c.limiter != nil && !c.limiter.Allow() {
			err = domain.ErrRateLimited
		} else {
			res, err = s.handler.Execute(ctx, name, args)
		}
	}

	status := "OK"
	if err != nil {
		var de *domain.DomainError
		if !errors.As(err, &de) {
			de = domain.ErrInternalServer.WithCause(err)
			s.logger.ErrorContext(ctx, "command failed", "command", name, "error", err)
		}
		status = de.Code
		res = &Result{Reply: resp.Error(de.Reply())}
	}
	s.metrics.RecordCommand(commandLabel(name), status, time.Since(start).Seconds())

	if err := s.write(c, res.Reply); err != nil {
		return true, err
	}
	if res.Snapshot != nil {
		if err := c.netConn.SetWriteDeadline(deadline(s.cfg.WriteTimeout)); err != nil {
			return true, err
		}
		if err := c.w.WriteSnapshot(res.Snapshot); err != nil {
			return true, err
		}
	}
	return res.Close, nil
}

func (s *Server) write(c *Conn, v resp.Value) error {
	if err := c.netConn.SetWriteDeadline(deadline(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.w.WriteValue(v)
}

func logReadError(ctx context.Context, log *slog.Logger, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		log.DebugContext(ctx, "connection closed")
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		log.DebugContext(ctx, "connection timed out")
		return
	}
	log.DebugContext(ctx, "connection read error", "error", err)
}

// remoteString names a peer; unix socket peers are usually unnamed.
func remoteString(addr net.Addr) string {
	if addr == nil || addr.String() == "" {
		return "local"
	}
	return addr.String()
}

// deadline returns the absolute deadline for d, or the zero time when d
// disables the timeout.
func deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}
