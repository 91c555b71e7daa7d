// Package main provides the entry point for respkv-cli.
//
// respkv-cli sends commands to a respkv-server, either one command given on
// the command line or interactively in a REPL.
//
// Usage:
//
//	respkv-cli [-s host:port] [-o text|json|yaml] [command [arg...]]
//	respkv-cli SET greeting hello PX 60000
//	respkv-cli -o json INFO
//	respkv-cli handshake --listening-port 6380
package main
