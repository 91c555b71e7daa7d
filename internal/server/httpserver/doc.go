// Package httpserver provides the optional admin HTTP endpoint.
//
// Routes:
//
//   - GET /metrics: Prometheus exposition
//   - GET /healthz: liveness
//   - GET /info: replication role, run id, offset, key count and build info
//
// Every request passes through RequestID, Recover and Audit. The request id
// is a ULID returned in the X-Request-ID header unless the client sent one.
package httpserver
