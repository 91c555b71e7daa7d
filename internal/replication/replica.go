package replication

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/yndnr/respkv-go/internal/telemetry/metric"
)

// DefaultDialTimeout bounds connecting to the primary.
const DefaultDialTimeout = 10 * time.Second

// Replica is the link from a replica process to its primary.
type Replica struct {
	primaryAddr string
	listenPort  int
	dialer      net.Dialer
	logger      *slog.Logger
	metrics     *metric.Registry
}

// Option configures the Replica.
type Option func(*Replica)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Replica) {
		r.logger = l
	}
}

// WithMetrics sets the registry handshake outcomes are recorded in.
func WithMetrics(m *metric.Registry) Option {
	return func(r *Replica) {
		r.metrics = m
	}
}

// WithDialTimeout sets the timeout for connecting to the primary.
func WithDialTimeout(d time.Duration) Option {
	return func(r *Replica) {
		r.dialer.Timeout = d
	}
}

// NewReplica creates a link to the primary at primaryAddr ("host:port").
// listenPort is announced to the primary during the handshake.
func NewReplica(primaryAddr string, listenPort int, opts ...Option) *Replica {
	r := &Replica{
		primaryAddr: primaryAddr,
		listenPort:  listenPort,
		dialer:      net.Dialer{Timeout: DefaultDialTimeout},
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run connects to the primary, performs the handshake, consumes the
// snapshot and then holds the link open, discarding anything the primary
// sends, until the primary closes it or ctx is cancelled.
//
// Run does not retry. It returns nil when the link ends normally.
func (r *Replica) Run(ctx context.Context) error {
	log := r.logger.With("primary", r.primaryAddr)

	conn, err := r.dialer.DialContext(ctx, "tcp", r.primaryAddr)
	if err != nil {
		r.metrics.RecordHandshake("failed_dial")
		return fmt.Errorf("dial primary: %w", err)
	}
	defer conn.Close()

	log.Info("replication handshake started", "listening_port", r.listenPort)

	hs := NewHandshake(conn, r.listenPort)
	res, err := hs.Run(ctx)
	if err != nil {
		r.metrics.RecordHandshake("failed_" + hs.Stage().String())
		return err
	}
	r.metrics.RecordHandshake("success")
	log.Info("replication handshake completed", "run_id", res.RunID, "offset", res.Offset)

	snapshot, err := hs.ReadSnapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Debug("snapshot received", "bytes", len(snapshot))

	return r.drain(ctx, hs, log)
}

// drain reads and discards values until the stream ends.
func (r *Replica) drain(ctx context.Context, hs *Handshake, log *slog.Logger) error {
	stop := context.AfterFunc(ctx, func() {
		_ = hs.conn.Close()
	})
	defer stop()

	var discarded int
	for {
		if _, err := hs.r.ReadValue(); err != nil {
			switch {
			case ctx.Err() != nil:
				log.Info("replication link stopped", "discarded", discarded)
				return nil
			case errors.Is(err, io.EOF):
				log.Info("primary closed replication link", "discarded", discarded)
				return nil
			default:
				return fmt.Errorf("read replication stream: %w", err)
			}
		}
		discarded++
	}
}
