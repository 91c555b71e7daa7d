// Package logger provides structured logging for respkv.
//
// It wraps the standard library log/slog:
//
//   - logger.go: Logger interface, JSON/text handlers, dynamic level
//   - context.go: context propagation of request and connection IDs
//   - redact.go: sensitive data redaction
//
// Attributes named value, payload or snapshot are always redacted so
// stored data never reaches the logs; string attributes whose key looks
// like a credential are redacted when non-empty.
package logger
