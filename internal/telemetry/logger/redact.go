package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Sensitive key patterns whose non-empty string values are redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"bearer",
}

// payloadKeys carry stored data. They are always replaced, whatever their
// kind, so keyspace contents never reach the logs.
var payloadKeys = map[string]bool{
	"value":    true,
	"payload":  true,
	"snapshot": true,
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if payloadKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redactPayload(a.Value))
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && isSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// redactPayload keeps only the size of byte and string payloads.
func redactPayload(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return fmt.Sprintf("%s (%d bytes)", redactedValue, len(v.String()))
	case slog.KindAny:
		if b, ok := v.Any().([]byte); ok {
			return fmt.Sprintf("%s (%d bytes)", redactedValue, len(b))
		}
	}
	return redactedValue
}

// isSensitiveKey reports if a key name suggests sensitive content.
func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
