// Package config defines the respkv-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: validation and derived values (listen address, role)
//   - sanitize.go: log sanitization
//
// Configuration is loaded via internal/infra/confloader from defaults, a
// YAML file, .env files, RESPKV_* environment variables and flags.
package config
