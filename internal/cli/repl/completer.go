package repl

import (
	"sort"
	"strings"
)

// Completer matches command names by prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer knowing the server commands and the
// built-in REPL commands.
func NewCompleter() *Completer {
	commands := []string{
		"ECHO", "GET", "INFO", "PING", "PSYNC", "QUIT", "REPLCONF", "SET",
		"connect", "exit", "help",
	}
	sort.Slice(commands, func(i, j int) bool {
		return strings.ToLower(commands[i]) < strings.ToLower(commands[j])
	})
	return &Completer{commands: commands}
}

// Complete returns the commands starting with prefix, ignoring case. An
// empty prefix matches every command.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(strings.ToLower(cmd), prefix) {
			out = append(out, cmd)
		}
	}
	return out
}
