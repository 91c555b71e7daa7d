// Package handler serves the JSON endpoints of the admin HTTP server:
//
//   - health.go: GET /healthz
//   - info.go: GET /info (replication role, run id, offset, key count, build)
//
// Every JSON body uses the Response envelope.
package handler
