package redisserver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/respkv-go/internal/core/domain"
	"github.com/yndnr/respkv-go/internal/core/state"
	"github.com/yndnr/respkv-go/internal/protocol/resp"
	"github.com/yndnr/respkv-go/internal/replication"
)

// Result is the outcome of one executed command.
type Result struct {
	// Reply is written to the client first.
	Reply resp.Value
	// Snapshot, when non-nil, is written right after Reply in snapshot
	// framing.
	Snapshot []byte
	// Close asks the connection loop to close after writing the reply.
	Close bool
}

// commands lists the names Execute dispatches.
var commands = map[string]bool{
	"ping": true, "echo": true, "get": true, "set": true, "info": true,
	"command": true, "replconf": true, "psync": true, "quit": true,
}

// commandLabel maps a request name to a metric label. Names outside the
// command set share one label so clients cannot grow the series count.
func commandLabel(name string) string {
	switch {
	case name == "":
		return "invalid"
	case commands[name]:
		return name
	default:
		return "unknown"
	}
}

func reply(v resp.Value) *Result {
	return &Result{Reply: v}
}

// CommandHandler executes commands against the server state.
type CommandHandler struct {
	state  *state.State
	logger *slog.Logger
	now    func() time.Time
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(st *state.State, logger *slog.Logger) *CommandHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &CommandHandler{
		state:  st,
		logger: logger,
		now:    time.Now,
	}
}

// Execute runs the command name (already lower-cased) with args.
//
// Validation failures are returned as *domain.DomainError and leave the
// connection usable.
func (h *CommandHandler) Execute(ctx context.Context, name string, args []resp.Value) (*Result, error) {
	switch name {
	case "ping":
		return h.handlePing(args)
	case "echo":
		return h.handleEcho(args)
	case "get":
		return h.handleGet(args)
	case "set":
		return h.handleSet(args)
	case "info":
		return h.handleInfo(args)
	case "command":
		return reply(resp.Array()), nil
	case "replconf":
		h.logger.DebugContext(ctx, "acknowledging REPLCONF", "args", len(args))
		return reply(resp.SimpleString("OK")), nil
	case "psync":
		return h.handlePsync(args)
	case "quit":
		return &Result{Reply: resp.SimpleString("OK"), Close: true}, nil
	default:
		return nil, domain.UnknownCommand(name)
	}
}

// PING
func (h *CommandHandler) handlePing(args []resp.Value) (*Result, error) {
	if len(args) != 0 {
		return nil, domain.WrongArity("ping")
	}
	return reply(resp.SimpleString("PONG")), nil
}

// ECHO <message>
func (h *CommandHandler) handleEcho(args []resp.Value) (*Result, error) {
	if len(args) != 1 {
		return nil, domain.WrongArity("echo")
	}
	msg, err := bulkArg("echo", args[0])
	if err != nil {
		return nil, err
	}
	return reply(resp.BulkString(msg)), nil
}

// GET <key>
func (h *CommandHandler) handleGet(args []resp.Value) (*Result, error) {
	if len(args) != 1 {
		return nil, domain.WrongArity("get")
	}
	key, err := bulkArg("get", args[0])
	if err != nil {
		return nil, err
	}

	value, ok := h.state.Store().Get(key)
	if !ok {
		return reply(resp.NullBulkString()), nil
	}
	return reply(resp.BulkString(value)), nil
}

// SET <key> <value> [PX milliseconds]
func (h *CommandHandler) handleSet(args []resp.Value) (*Result, error) {
	if len(args) < 2 {
		return nil, domain.WrongArity("set")
	}
	key, err := bulkArg("set", args[0])
	if err != nil {
		return nil, err
	}
	value, err := bulkArg("set", args[1])
	if err != nil {
		return nil, err
	}

	now := h.now()
	var expiresAt time.Time
	for i := 2; i < len(args); i++ {
		opt, err := bulkArg("set", args[i])
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(string(opt)) {
		case "px":
			if i+1 >= len(args) {
				return nil, domain.ErrSyntax
			}
			i++
			raw, err := bulkArg("set", args[i])
			if err != nil {
				return nil, err
			}
			ms, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return nil, domain.ErrNotInteger
			}
			if ms < 0 || ms > math.MaxInt64/int64(time.Millisecond) {
				return nil, domain.ErrInvalidExpire.WithMessage("invalid expire time in 'set' command")
			}
			expiresAt = now.Add(time.Duration(ms) * time.Millisecond)
		default:
			return nil, domain.ErrSyntax
		}
	}

	h.state.Store().Set(key, value, expiresAt)
	return reply(resp.SimpleString("OK")), nil
}

// INFO [section]
func (h *CommandHandler) handleInfo(_ []resp.Value) (*Result, error) {
	info := fmt.Sprintf("# Replication\nrole:%s\nmaster_replid:%s\nmaster_repl_offset:%d",
		h.state.Role().Name(), h.state.RunID(), h.state.Offset())
	return reply(resp.BulkStringFromString(info)), nil
}

// PSYNC ? -1
func (h *CommandHandler) handlePsync(args []resp.Value) (*Result, error) {
	if len(args) != 2 {
		return nil, domain.WrongArity("psync")
	}
	replID, err := bulkArg("psync", args[0])
	if err != nil {
		return nil, err
	}
	offset, err := bulkArg("psync", args[1])
	if err != nil {
		return nil, err
	}
	if string(replID) != "?" || string(offset) != "-1" {
		return nil, domain.ErrInvalidArgument.WithMessage("only full resynchronization (PSYNC ? -1) is supported")
	}

	h.logger.Info("full resync requested", "run_id", h.state.RunID())

	return &Result{
		Reply:    resp.SimpleString(fmt.Sprintf("FULLRESYNC %s %d", h.state.RunID(), h.state.Offset())),
		Snapshot: replication.EmptySnapshot(),
	}, nil
}

// bulkArg returns the payload of a bulk string argument.
func bulkArg(cmd string, v resp.Value) ([]byte, error) {
	if v.Kind != resp.KindBulkString {
		return nil, domain.ErrInvalidArgument.WithMessage("invalid argument type %s for '%s' command", v.Kind, cmd)
	}
	return v.Bulk, nil
}

// parseRequest splits a decoded request into a lower-cased command name
// and its arguments.
func parseRequest(v resp.Value) (string, []resp.Value, error) {
	switch v.Kind {
	case resp.KindSimpleString, resp.KindBulkString:
		name, _ := v.Text()
		return strings.ToLower(name), nil, nil
	case resp.KindArray:
		if len(v.Elems) == 0 {
			return "", nil, domain.ErrInvalidRequest.WithMessage("empty command")
		}
		head := v.Elems[0]
		if head.Kind != resp.KindSimpleString && head.Kind != resp.KindBulkString {
			return "", nil, domain.ErrInvalidRequest.WithMessage("invalid command name type %s", head.Kind)
		}
		name, _ := head.Text()
		return strings.ToLower(name), v.Elems[1:], nil
	default:
		return "", nil, domain.ErrInvalidRequest.WithMessage("expected a command, got %s", v.Kind)
	}
}
