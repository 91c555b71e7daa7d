// Package redisserver serves the key-value command set over the Redis
// serialization protocol.
//
// Supported commands:
//   - PING, ECHO, QUIT, COMMAND
//   - GET, SET [PX milliseconds]
//   - INFO (replication section)
//   - REPLCONF, PSYNC ? -1 (full resynchronization with an empty snapshot)
//
// Command validation failures are answered with an error reply and the
// connection stays open. A request that cannot be decoded is answered with
// a protocol error and the connection is closed.
//
// Start serves a TCP listener. ServeConn runs the same loop on connections
// accepted elsewhere, such as the local Unix socket.
package redisserver
