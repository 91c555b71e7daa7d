// Package main provides the entry point for respkv-server.
//
// The server speaks RESP2 on one TCP listener and serves PING, ECHO, GET,
// SET (with PX), INFO, REPLCONF and PSYNC. With --replicaof it also runs the
// replica side of the replication handshake against a primary. An optional
// admin HTTP endpoint exposes /metrics, /healthz and /info.
//
// Usage:
//
//	respkv-server [flags]
//	respkv-server --config /etc/respkv/config.yaml
//	respkv-server --port 6380 --replicaof "localhost 6379"
//
// Configuration precedence, lowest first: defaults, config file, .env,
// RESPKV_* environment variables, flags. log.level changes in the config
// file are applied without a restart.
package main
