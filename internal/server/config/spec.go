package config

import "time"

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server      ServerSection      `koanf:"server"`
	Replication ReplicationSection `koanf:"replication"`
	Storage     StorageSection     `koanf:"storage"`
	Log         LogSection         `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`
	HTTP  HTTPConfig  `koanf:"http"`
}

// RedisConfig configures the protocol listener.
type RedisConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// RateLimit is the maximum number of commands per second per
	// connection. 0 disables rate limiting.
	RateLimit int `koanf:"rate_limit"`

	// Timeouts; 0 disables each of them.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// MaxNesting limits array nesting in requests.
	MaxNesting int `koanf:"max_nesting"`

	// UnixSocket, when set, also serves the protocol on this Unix socket.
	UnixSocket string `koanf:"unix_socket"`
}

// HTTPConfig configures the admin HTTP endpoint.
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`

	// TLSCertFile and TLSKeyFile switch the endpoint to HTTPS. Both or
	// neither must be set; the pair is reloaded when the files change.
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// TLSEnabled reports whether the admin endpoint serves HTTPS.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// ReplicationSection configures the replication role.
type ReplicationSection struct {
	// ReplicaOf is "<host> <port>" of the primary. Empty means this node
	// is a primary.
	ReplicaOf string `koanf:"replicaof"`
}

// StorageSection configures the in-memory keyspace.
type StorageSection struct {
	// ShardCount must be a power of two.
	ShardCount int `koanf:"shard_count"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
