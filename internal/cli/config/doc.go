// Package config provides respkv-cli preferences.
//
//   - spec.go: CLIConfig struct (~/.respkv/cli.yaml)
//   - loader.go: YAML loading and saving
//
// Command-line flags and RESPKV_ environment variables take precedence
// over the file.
package config
