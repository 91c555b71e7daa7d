// Package metric provides Prometheus metrics for respkv.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//   - collector.go: Keyspace collector read at scrape time
//
// Metrics include:
//
//   - Connection gauges and counters
//   - Command counters and latency histograms
//   - Protocol error and expired key counters
//   - Replication handshake results
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
