package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/yndnr/respkv-go/internal/core/domain"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if _, err := cfg.ReplicaOf(); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if strings.TrimSpace(cfg.Redis.Host) == "" {
		return errors.New("server.redis.host is required")
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return fmt.Errorf("server.redis.port must be in 1..65535, got %d", cfg.Redis.Port)
	}
	if cfg.Redis.RateLimit < 0 {
		return errors.New("server.redis.rate_limit must not be negative")
	}
	if cfg.Redis.ReadTimeout < 0 || cfg.Redis.WriteTimeout < 0 || cfg.Redis.IdleTimeout < 0 {
		return errors.New("server.redis timeouts must not be negative")
	}
	if cfg.Redis.MaxNesting < 1 {
		return errors.New("server.redis.max_nesting must be at least 1")
	}

	if cfg.HTTP.Enabled {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
			return fmt.Errorf("server.http.addr: %w", err)
		}
		if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
			return errors.New("server.http: tls_cert_file and tls_key_file must be set together")
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	n := cfg.ShardCount
	if n < 1 || n&(n-1) != 0 {
		return fmt.Errorf("storage.shard_count must be a power of two, got %d", n)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

// Addr returns the protocol listener address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Server.Redis.Host, strconv.Itoa(c.Server.Redis.Port))
}

// ReplicaOf returns the primary address from replication.replicaof, or ""
// when this node is a primary.
func (c *ServerConfig) ReplicaOf() (string, error) {
	if strings.TrimSpace(c.Replication.ReplicaOf) == "" {
		return "", nil
	}
	addr, err := domain.ParseReplicaOf(c.Replication.ReplicaOf)
	if err != nil {
		return "", fmt.Errorf("replication.replicaof: %w", err)
	}
	return addr, nil
}

// Role returns the replication role selected by the configuration.
func (c *ServerConfig) Role() (domain.Role, error) {
	addr, err := c.ReplicaOf()
	if err != nil {
		return domain.Role{}, err
	}
	if addr == "" {
		return domain.PrimaryRole(), nil
	}
	return domain.ReplicaRole(addr), nil
}
