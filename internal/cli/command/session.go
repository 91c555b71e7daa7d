package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yndnr/respkv-go/internal/cli/connection"
	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/protocol/resp"
	"github.com/yndnr/respkv-go/internal/replication"
)

// Session sends commands through a connection manager and prints the
// replies. It implements repl.Session.
type Session struct {
	mgr    *connection.Manager
	format output.Format
	out    io.Writer
}

// NewSession creates a Session printing replies to out in format.
func NewSession(mgr *connection.Manager, format output.Format, out io.Writer) *Session {
	return &Session{mgr: mgr, format: format, out: out}
}

// Prompt returns "host:port> ".
func (s *Session) Prompt() string {
	addr := s.mgr.Addr()
	if addr == "" {
		return "not connected> "
	}
	return addr + "> "
}

// Connect switches to the server at addr.
func (s *Session) Connect(ctx context.Context, addr string) error {
	return s.mgr.Connect(ctx, addr)
}

// Execute sends args and prints the reply. Error replies are printed, not
// returned. A FULLRESYNC reply is followed by the snapshot, which is read
// and summarized.
func (s *Session) Execute(ctx context.Context, args []string) error {
	v, err := s.mgr.Do(ctx, args...)
	if err != nil {
		return err
	}

	name := strings.ToLower(args[0])
	if err := s.formatter(name).Format(s.out, v); err != nil {
		return err
	}

	if name == "psync" && v.Kind == resp.KindSimpleString && strings.HasPrefix(v.Str, "FULLRESYNC ") {
		payload, err := s.mgr.ReadSnapshot(ctx)
		if err != nil {
			return err
		}
		if err := replication.CheckSnapshot(payload); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "(snapshot) %d bytes\n", len(payload))
	}
	return nil
}

// formatter returns the formatter for a command. INFO is printed raw in
// text mode so its lines stay readable.
func (s *Session) formatter(name string) output.Formatter {
	if name == "info" && s.format == output.FormatText {
		return &output.TextFormatter{Raw: true}
	}
	return output.NewFormatter(s.format)
}
