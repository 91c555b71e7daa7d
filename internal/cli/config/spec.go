package config

import "time"

// CLIConfig is the configuration for respkv-cli.
type CLIConfig struct {
	// DefaultServer is the host:port used when --server is not given.
	DefaultServer string `yaml:"default_server"`
	// DefaultOutput is text, json or yaml.
	DefaultOutput string `yaml:"default_output"`
	// Timeout bounds dialing and each command round trip.
	Timeout time.Duration `yaml:"timeout"`
	// HistoryFile is where the REPL keeps its history. Empty uses
	// ~/.respkv/history.
	HistoryFile string `yaml:"history_file,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "127.0.0.1:6379",
		DefaultOutput: "text",
		Timeout:       5 * time.Second,
	}
}
