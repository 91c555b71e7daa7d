package redisserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/respkv-go/internal/core/domain"
	"github.com/yndnr/respkv-go/internal/core/state"
	"github.com/yndnr/respkv-go/internal/protocol/resp"
	"github.com/yndnr/respkv-go/internal/storage/memory"
)

const testRunID = "2f0c1e6a-5b7d-4c2e-9a41-3d8f6b0e7c15"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(opts ...state.Option) (*CommandHandler, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := memory.New(memory.WithClock(clock.Now))
	st := state.New(store, append([]state.Option{state.WithRunID(testRunID)}, opts...)...)

	h := NewCommandHandler(st, discardLogger())
	h.now = clock.Now
	return h, clock
}

func bulks(args ...string) []resp.Value {
	vals := make([]resp.Value, len(args))
	for i, a := range args {
		vals[i] = resp.BulkStringFromString(a)
	}
	return vals
}

func mustExec(t *testing.T, h *CommandHandler, name string, args ...string) resp.Value {
	t.Helper()
	res, err := h.Execute(context.Background(), name, bulks(args...))
	if err != nil {
		t.Fatalf("%s %v: error = %v", name, args, err)
	}
	return res.Reply
}

// ============================================================
// Basic commands
// ============================================================

func TestCommandHandler_Ping(t *testing.T) {
	h, _ := newTestHandler()

	if got := mustExec(t, h, "ping"); !got.Equal(resp.SimpleString("PONG")) {
		t.Errorf("PING = %v, want +PONG", got)
	}

	_, err := h.Execute(context.Background(), "ping", bulks("hello"))
	if !errors.Is(err, domain.ErrWrongArity) {
		t.Errorf("PING hello error = %v, want ErrWrongArity", err)
	}
}

func TestCommandHandler_Echo(t *testing.T) {
	h, _ := newTestHandler()

	if got := mustExec(t, h, "echo", "hey"); !got.Equal(resp.BulkStringFromString("hey")) {
		t.Errorf("ECHO hey = %v", got)
	}
	if got := mustExec(t, h, "echo", ""); !got.Equal(resp.BulkStringFromString("")) {
		t.Errorf("ECHO \"\" = %v", got)
	}

	for _, args := range [][]string{{}, {"a", "b"}} {
		if _, err := h.Execute(context.Background(), "echo", bulks(args...)); !errors.Is(err, domain.ErrWrongArity) {
			t.Errorf("ECHO %v error = %v, want ErrWrongArity", args, err)
		}
	}

	_, err := h.Execute(context.Background(), "echo", []resp.Value{resp.Integer(1)})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("ECHO :1 error = %v, want ErrInvalidArgument", err)
	}
}

func TestCommandHandler_UnknownCommand(t *testing.T) {
	h, _ := newTestHandler()

	_, err := h.Execute(context.Background(), "flushall", nil)
	if !errors.Is(err, domain.ErrUnknownCommand) {
		t.Fatalf("error = %v, want ErrUnknownCommand", err)
	}

	var de *domain.DomainError
	errors.As(err, &de)
	if de.Reply() != "ERR unknown command 'flushall'" {
		t.Errorf("Reply() = %q", de.Reply())
	}
}

func TestCommandHandler_CommandAndReplconf(t *testing.T) {
	h, _ := newTestHandler()

	if got := mustExec(t, h, "command", "docs"); !got.Equal(resp.Array()) {
		t.Errorf("COMMAND = %v, want empty array", got)
	}
	if got := mustExec(t, h, "replconf", "listening-port", "6380"); !got.Equal(resp.SimpleString("OK")) {
		t.Errorf("REPLCONF = %v, want +OK", got)
	}
}

func TestCommandHandler_Quit(t *testing.T) {
	h, _ := newTestHandler()

	res, err := h.Execute(context.Background(), "quit", nil)
	if err != nil {
		t.Fatalf("QUIT error = %v", err)
	}
	if !res.Close || !res.Reply.Equal(resp.SimpleString("OK")) {
		t.Errorf("QUIT = %+v, want +OK and close", res)
	}
}

// ============================================================
// GET / SET
// ============================================================

func TestCommandHandler_SetGet(t *testing.T) {
	h, _ := newTestHandler()

	if got := mustExec(t, h, "get", "missing"); !got.IsNull() {
		t.Errorf("GET missing = %v, want null", got)
	}
	if got := mustExec(t, h, "set", "k", "v1"); !got.Equal(resp.SimpleString("OK")) {
		t.Errorf("SET = %v, want +OK", got)
	}
	if got := mustExec(t, h, "get", "k"); !got.Equal(resp.BulkStringFromString("v1")) {
		t.Errorf("GET k = %v, want v1", got)
	}
	mustExec(t, h, "set", "k", "v2")
	if got := mustExec(t, h, "get", "k"); !got.Equal(resp.BulkStringFromString("v2")) {
		t.Errorf("GET k = %v, want v2", got)
	}
}

func TestCommandHandler_SetBinary(t *testing.T) {
	h, _ := newTestHandler()

	key := resp.BulkString([]byte{0x00, 0xff, '\r', '\n'})
	val := resp.BulkString([]byte{0x01, 0x00, 0x02})
	if _, err := h.Execute(context.Background(), "set", []resp.Value{key, val}); err != nil {
		t.Fatalf("SET error = %v", err)
	}
	res, err := h.Execute(context.Background(), "get", []resp.Value{key})
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if !res.Reply.Equal(val) {
		t.Errorf("GET = %v, want %v", res.Reply, val)
	}
}

func TestCommandHandler_SetPX(t *testing.T) {
	h, clock := newTestHandler()

	mustExec(t, h, "set", "k", "v", "PX", "100")

	clock.Advance(99 * time.Millisecond)
	if got := mustExec(t, h, "get", "k"); !got.Equal(resp.BulkStringFromString("v")) {
		t.Errorf("GET before expiry = %v", got)
	}

	clock.Advance(time.Millisecond)
	if got := mustExec(t, h, "get", "k"); !got.IsNull() {
		t.Errorf("GET at expiry = %v, want null", got)
	}
}

func TestCommandHandler_SetPXOptionForms(t *testing.T) {
	h, clock := newTestHandler()

	// Option names are case-insensitive and the last PX wins.
	mustExec(t, h, "set", "k", "v", "px", "10", "Px", "1000")
	clock.Advance(500 * time.Millisecond)
	if got := mustExec(t, h, "get", "k"); got.IsNull() {
		t.Error("last PX should win")
	}

	// PX 0 expires immediately.
	mustExec(t, h, "set", "zero", "v", "PX", "0")
	if got := mustExec(t, h, "get", "zero"); !got.IsNull() {
		t.Errorf("GET after PX 0 = %v, want null", got)
	}

	// A plain SET clears a previous expiry.
	mustExec(t, h, "set", "p", "v", "PX", "10")
	mustExec(t, h, "set", "p", "v")
	clock.Advance(time.Hour)
	if got := mustExec(t, h, "get", "p"); got.IsNull() {
		t.Error("SET without PX should clear the expiry")
	}
}

func TestCommandHandler_SetErrors(t *testing.T) {
	h, _ := newTestHandler()

	tests := []struct {
		name    string
		args    []string
		wantErr error
		reply   string
	}{
		{"no args", nil, domain.ErrWrongArity, "ERR wrong number of arguments for 'set' command"},
		{"key only", []string{"k"}, domain.ErrWrongArity, ""},
		{"unknown option", []string{"k", "v", "EX", "10"}, domain.ErrSyntax, "ERR syntax error"},
		{"missing px value", []string{"k", "v", "PX"}, domain.ErrSyntax, ""},
		{"non numeric px", []string{"k", "v", "PX", "soon"}, domain.ErrNotInteger, "ERR value is not an integer or out of range"},
		{"negative px", []string{"k", "v", "PX", "-1"}, domain.ErrInvalidExpire, "ERR invalid expire time in 'set' command"},
		{"overflowing px", []string{"k", "v", "PX", "9223372036854775807"}, domain.ErrInvalidExpire, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), "set", bulks(tt.args...))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.reply == "" {
				return
			}
			var de *domain.DomainError
			errors.As(err, &de)
			if de.Reply() != tt.reply {
				t.Errorf("Reply() = %q, want %q", de.Reply(), tt.reply)
			}
		})
	}

	// Failed SETs must not touch the keyspace.
	if got := mustExec(t, h, "get", "k"); !got.IsNull() {
		t.Errorf("GET k = %v, want null", got)
	}
}

func TestCommandHandler_GetErrors(t *testing.T) {
	h, _ := newTestHandler()

	if _, err := h.Execute(context.Background(), "get", nil); !errors.Is(err, domain.ErrWrongArity) {
		t.Errorf("GET error = %v, want ErrWrongArity", err)
	}
	if _, err := h.Execute(context.Background(), "get", bulks("a", "b")); !errors.Is(err, domain.ErrWrongArity) {
		t.Errorf("GET a b error = %v, want ErrWrongArity", err)
	}
	_, err := h.Execute(context.Background(), "get", []resp.Value{resp.Array()})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("GET [] error = %v, want ErrInvalidArgument", err)
	}
}

// ============================================================
// Replication commands
// ============================================================

func TestCommandHandler_Info(t *testing.T) {
	tests := []struct {
		name string
		opts []state.Option
		role string
	}{
		{"primary", nil, "master"},
		{"replica", []state.Option{state.WithRole(domain.ReplicaRole("127.0.0.1:6379"))}, "slave"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(tt.opts...)

			got := mustExec(t, h, "info", "replication")
			want := "# Replication\nrole:" + tt.role + "\nmaster_replid:" + testRunID + "\nmaster_repl_offset:0"
			if string(got.Bulk) != want {
				t.Errorf("INFO = %q, want %q", got.Bulk, want)
			}
		})
	}
}

func TestCommandHandler_Psync(t *testing.T) {
	h, _ := newTestHandler()

	res, err := h.Execute(context.Background(), "psync", bulks("?", "-1"))
	if err != nil {
		t.Fatalf("PSYNC error = %v", err)
	}
	if !res.Reply.Equal(resp.SimpleString("FULLRESYNC " + testRunID + " 0")) {
		t.Errorf("PSYNC reply = %v", res.Reply)
	}
	if len(res.Snapshot) != 88 || !strings.HasPrefix(string(res.Snapshot), "REDIS") {
		t.Errorf("PSYNC snapshot = %d bytes", len(res.Snapshot))
	}
}

func TestCommandHandler_PsyncErrors(t *testing.T) {
	h, _ := newTestHandler()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"no args", nil, domain.ErrWrongArity},
		{"one arg", []string{"?"}, domain.ErrWrongArity},
		{"partial resync", []string{testRunID, "42"}, domain.ErrInvalidArgument},
		{"unknown id with offset", []string{"?", "0"}, domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.Execute(context.Background(), "psync", bulks(tt.args...)); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ============================================================
// Request parsing
// ============================================================

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name     string
		value    resp.Value
		wantName string
		wantArgs int
		wantErr  bool
	}{
		{"bulk array", resp.Command("SET", "k", "v"), "set", 2, false},
		{"simple string head", resp.Array(resp.SimpleString("Ping")), "ping", 0, false},
		{"bare bulk string", resp.BulkStringFromString("PING"), "ping", 0, false},
		{"bare simple string", resp.SimpleString("ping"), "ping", 0, false},
		{"empty array", resp.Array(), "", 0, true},
		{"integer head", resp.Array(resp.Integer(1)), "", 0, true},
		{"integer request", resp.Integer(7), "", 0, true},
		{"error request", resp.Error("ERR x"), "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args, err := parseRequest(tt.value)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidRequest) {
					t.Errorf("error = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if name != tt.wantName || len(args) != tt.wantArgs {
				t.Errorf("parseRequest() = %q, %d args; want %q, %d", name, len(args), tt.wantName, tt.wantArgs)
			}
		})
	}
}

func TestCommandLabel(t *testing.T) {
	tests := map[string]string{
		"":        "invalid",
		"get":     "get",
		"psync":   "psync",
		"flushdb": "unknown",
		"junk123": "unknown",
	}
	for name, want := range tests {
		if got := commandLabel(name); got != want {
			t.Errorf("commandLabel(%q) = %q, want %q", name, got, want)
		}
	}
}
