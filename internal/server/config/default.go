package config

// Default configuration values.
const (
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 6379
	DefaultMaxNesting = 128

	DefaultHTTPAddr = "127.0.0.1:9121"

	DefaultShardCount = 16

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Host:       DefaultHost,
				Port:       DefaultPort,
				MaxNesting: DefaultMaxNesting,
			},
			HTTP: HTTPConfig{
				Enabled: false,
				Addr:    DefaultHTTPAddr,
			},
		},
		Storage: StorageSection{
			ShardCount: DefaultShardCount,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
