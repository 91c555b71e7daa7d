// Package connection manages the CLI's link to a respkv server.
//
//   - client.go: one RESP2 connection; sends a command, reads one reply
//   - manager.go: the current connection, switched by the REPL's connect
//
// A broken connection is dropped and redialled on the next command.
package connection
