package replication

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/respkv-go/internal/protocol/resp"
)

// Stage is a step of the replica-side handshake.
type Stage int

const (
	// StageInitial is the stage before anything was sent.
	StageInitial Stage = iota
	// StagePinged means the primary answered PING.
	StagePinged
	// StagePortAnnounced means the primary accepted the listening port.
	StagePortAnnounced
	// StageCapabilitiesAnnounced means the primary accepted the capabilities.
	StageCapabilitiesAnnounced
	// StageResyncAccepted means the primary agreed to a full resync.
	StageResyncAccepted
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageInitial:
		return "initial"
	case StagePinged:
		return "pinged"
	case StagePortAnnounced:
		return "port_announced"
	case StageCapabilitiesAnnounced:
		return "capabilities_announced"
	case StageResyncAccepted:
		return "resync_accepted"
	default:
		return "unknown"
	}
}

// Sentinel causes carried by HandshakeError.
var (
	// ErrUnexpectedReply indicates the primary answered with the wrong value.
	ErrUnexpectedReply = errors.New("unexpected reply")
	// ErrErrorReply indicates the primary answered with an error.
	ErrErrorReply = errors.New("error reply")
)

// HandshakeError reports a handshake failure and the last stage reached.
type HandshakeError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed at stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a completed handshake.
type Result struct {
	// RunID is the replication id of the primary.
	RunID string
	// Offset is the replication offset the primary announced.
	Offset int64
}

// Handshake drives the replica side of the handshake on one connection.
//
// A Handshake is not safe for concurrent use.
type Handshake struct {
	conn       net.Conn
	r          *resp.Reader
	w          *resp.Writer
	listenPort int
	stage      Stage
}

// NewHandshake creates a handshake over conn announcing listenPort.
func NewHandshake(conn net.Conn, listenPort int) *Handshake {
	return &Handshake{
		conn:       conn,
		r:          resp.NewReader(conn, resp.WithNullReplies()),
		w:          resp.NewWriter(conn),
		listenPort: listenPort,
	}
}

// Stage returns the last stage reached.
func (h *Handshake) Stage() Stage {
	return h.stage
}

// Run performs the handshake: PING, REPLCONF listening-port,
// REPLCONF capa psync2, then PSYNC ? -1.
//
// Cancelling ctx interrupts any blocked read or write. Every failure is
// a *HandshakeError.
func (h *Handshake) Run(ctx context.Context) (*Result, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = h.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	res, err := h.run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &HandshakeError{Stage: h.stage, Err: err}
	}
	return res, nil
}

func (h *Handshake) run() (*Result, error) {
	if err := h.exchange("PONG", "PING"); err != nil {
		return nil, err
	}
	h.stage = StagePinged

	if err := h.exchange("OK", "REPLCONF", "listening-port", strconv.Itoa(h.listenPort)); err != nil {
		return nil, err
	}
	h.stage = StagePortAnnounced

	if err := h.exchange("OK", "REPLCONF", "capa", "psync2"); err != nil {
		return nil, err
	}
	h.stage = StageCapabilitiesAnnounced

	reply, err := h.call("PSYNC", "?", "-1")
	if err != nil {
		return nil, err
	}
	res, err := parseFullResync(reply)
	if err != nil {
		return nil, err
	}
	h.stage = StageResyncAccepted

	return res, nil
}

// ReadSnapshot reads the snapshot payload that follows a full resync and
// checks its header.
func (h *Handshake) ReadSnapshot(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = h.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	payload, err := h.r.ReadSnapshot()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if err := CheckSnapshot(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// exchange sends a command and expects the simple string want.
func (h *Handshake) exchange(want string, args ...string) error {
	reply, err := h.call(args...)
	if err != nil {
		return err
	}
	if reply.Kind != resp.KindSimpleString || reply.Str != want {
		return fmt.Errorf("%w to %s: %v", ErrUnexpectedReply, args[0], reply)
	}
	return nil
}

// call sends a command and reads one reply. Error replies become errors.
func (h *Handshake) call(args ...string) (resp.Value, error) {
	if err := h.w.WriteCommand(args...); err != nil {
		return resp.Value{}, fmt.Errorf("send %s: %w", args[0], err)
	}

	reply, err := h.r.ReadValue()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return resp.Value{}, fmt.Errorf("read %s reply: %w", args[0], err)
	}
	if reply.Kind == resp.KindError {
		return resp.Value{}, fmt.Errorf("%w to %s: %s", ErrErrorReply, args[0], reply.Str)
	}
	return reply, nil
}

// parseFullResync parses "+FULLRESYNC <run-id> 0".
func parseFullResync(reply resp.Value) (*Result, error) {
	if reply.Kind != resp.KindSimpleString {
		return nil, fmt.Errorf("%w to PSYNC: %v", ErrUnexpectedReply, reply)
	}

	fields := strings.Fields(reply.Str)
	if len(fields) != 3 || fields[0] != "FULLRESYNC" || fields[1] == "" || fields[2] != "0" {
		return nil, fmt.Errorf("%w to PSYNC: %q", ErrUnexpectedReply, reply.Str)
	}

	return &Result{RunID: fields[1], Offset: 0}, nil
}
