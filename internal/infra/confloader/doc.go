// Package confloader loads configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides (command-line flags)
//  2. Environment variables (RESPKV_ prefix)
//  3. .env files (godotenv)
//  4. Configuration file (YAML)
//  5. Default values held by the target struct
//
// Watcher reports changes to the configuration file through fsnotify so
// selected settings (the log level) can be applied without a restart.
package confloader
