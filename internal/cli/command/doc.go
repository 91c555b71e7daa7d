// Package command provides the respkv-cli application.
//
//   - root.go: root command, global flags, one-shot and REPL modes
//   - session.go: Session sending commands and rendering replies
//   - handshake.go: handshake subcommand performing the replica handshake
//
// Global options come from flags, RESPKV_ environment variables and
// ~/.respkv/cli.yaml, in that order of precedence.
package command
