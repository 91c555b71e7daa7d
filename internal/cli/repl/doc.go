// Package repl provides the interactive mode of respkv-cli.
//
//   - repl.go: read-eval-print loop and built-in commands
//   - args.go: redis-cli compatible argument splitting
//   - completer.go: prefix completion used by "help"
//   - history.go: history persistence in ~/.respkv/history
//
// Built-in commands are handled locally: "connect <host> <port>" switches
// servers, "help [prefix]" lists matching commands and "exit" leaves the
// loop. Everything else is sent to the server through a Session.
package repl
