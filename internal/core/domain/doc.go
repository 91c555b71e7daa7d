// Package domain defines the core domain models for respkv.
//
// Domain models are pure values without any IO dependencies or framework
// coupling. This package contains:
//
//   - Errors: command, protocol and system error definitions
//   - Role: the replication role of a server process
package domain
