package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

// Session executes commands against a server.
type Session interface {
	// Execute sends args as one command and prints the reply.
	Execute(ctx context.Context, args []string) error
	// Connect switches to the server at addr.
	Connect(ctx context.Context, addr string) error
	// Prompt returns the prompt shown before each line.
	Prompt() string
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	session   Session
	input     io.Reader
	output    io.Writer
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithInput sets the line source. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(repl *REPL) {
		repl.input = r
	}
}

// WithOutput sets where prompts and messages go. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(repl *REPL) {
		repl.output = w
	}
}

// WithHistory replaces the default history.
func WithHistory(h *History) Option {
	return func(repl *REPL) {
		repl.history = h
	}
}

// New creates a REPL driving session.
func New(session Session, opts ...Option) *REPL {
	r := &REPL{
		session:   session,
		input:     os.Stdin,
		output:    os.Stdout,
		completer: NewCompleter(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.history == nil {
		r.history = NewHistory()
	}
	return r
}

// Run reads lines until exit, end of input or ctx is done. Command errors
// are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "Warning: failed to load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "Warning: failed to save history: %v\n", err)
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(r.output, r.session.Prompt())

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil

		if line = strings.TrimSpace(line); line != "" {
			r.history.Add(line)
			if stop := r.dispatch(ctx, line); stop {
				return nil
			}
		}
		if eof {
			fmt.Fprintln(r.output)
			return nil
		}
	}
}

// dispatch runs one line and reports whether the loop should stop.
func (r *REPL) dispatch(ctx context.Context, line string) bool {
	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.output, "Error: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch strings.ToLower(args[0]) {
	case "exit", "quit":
		return true
	case "help":
		r.help(args[1:])
	case "connect":
		addr, err := connectAddr(args[1:])
		if err == nil {
			err = r.session.Connect(ctx, addr)
		}
		if err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
	default:
		if err := r.session.Execute(ctx, args); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
	}
	return false
}

func (r *REPL) help(args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "no command matches %q\n", prefix)
		return
	}
	fmt.Fprintln(r.output, strings.Join(matches, " "))
}

// connectAddr accepts "host port" or "host:port".
func connectAddr(args []string) (string, error) {
	switch len(args) {
	case 1:
		if _, _, err := net.SplitHostPort(args[0]); err != nil {
			return "", fmt.Errorf("connect: %w", err)
		}
		return args[0], nil
	case 2:
		return net.JoinHostPort(args[0], args[1]), nil
	default:
		return "", errors.New("usage: connect <host> <port>")
	}
}
