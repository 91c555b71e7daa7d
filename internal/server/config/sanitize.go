package config

import "strings"

// Sanitize returns a copy of the config that is safe to log.
//
// Credentials embedded in the primary address (user:pass@host) are masked.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if r := sanitized.Replication.ReplicaOf; strings.Contains(r, "@") {
		sanitized.Replication.ReplicaOf = maskUserinfo(r)
	}

	return &sanitized
}

// maskUserinfo replaces everything before the last '@' with a mask.
func maskUserinfo(s string) string {
	i := strings.LastIndex(s, "@")
	return "****" + s[i:]
}
