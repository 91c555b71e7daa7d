package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/core/state"
	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
	"github.com/yndnr/respkv-go/internal/infra/confloader"
	"github.com/yndnr/respkv-go/internal/infra/shutdown"
	"github.com/yndnr/respkv-go/internal/infra/tlscert"
	"github.com/yndnr/respkv-go/internal/replication"
	"github.com/yndnr/respkv-go/internal/server/config"
	"github.com/yndnr/respkv-go/internal/server/httpserver"
	"github.com/yndnr/respkv-go/internal/server/localserver"
	"github.com/yndnr/respkv-go/internal/server/redisserver"
	"github.com/yndnr/respkv-go/internal/storage/memory"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
	"github.com/yndnr/respkv-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(logOutput io.Writer) *cli.App {
	return &cli.App{
		Name:    "respkv-server",
		Usage:   "RESP2 key-value server",
		Version: buildinfo.String(),
		Flags:   serverFlags(),
		Action: func(c *cli.Context) error {
			configPath := c.String("config")
			overrides := flagOverrides(c)

			load := func() (*config.ServerConfig, error) {
				return loadConfig(configPath, overrides)
			}
			cfg, err := load()
			if err != nil {
				return err
			}

			return run(c.Context, cfg, runOptions{
				configPath: configPath,
				reload:     load,
				logOutput:  logOutput,
			})
		},
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			EnvVars: []string{"RESPKV_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Address to bind the RESP listener to",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port of the RESP listener",
		},
		&cli.StringFlag{
			Name:  "unixsocket",
			Usage: "Also serve the protocol on this Unix socket",
		},
		&cli.StringFlag{
			Name:  "replicaof",
			Usage: `Run as a replica of "<host> <port>"`,
		},
		&cli.StringFlag{
			Name:  "http-addr",
			Usage: "Enable the admin HTTP endpoint on this address",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json, text",
		},
	}
}

// flagOverrides returns the explicitly set flags as configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	if c.IsSet("host") {
		overrides["server.redis.host"] = c.String("host")
	}
	if c.IsSet("port") {
		overrides["server.redis.port"] = c.Int("port")
	}
	if c.IsSet("unixsocket") {
		overrides["server.redis.unix_socket"] = c.String("unixsocket")
	}
	if c.IsSet("replicaof") {
		overrides["replication.replicaof"] = c.String("replicaof")
	}
	if c.IsSet("http-addr") {
		overrides["server.http.enabled"] = true
		overrides["server.http.addr"] = c.String("http-addr")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}
	if c.IsSet("log-format") {
		overrides["log.format"] = c.String("log-format")
	}
	return overrides
}

// loadConfig loads and validates the configuration.
func loadConfig(configPath string, overrides map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{
		confloader.WithDotEnv(".env"),
		confloader.WithOverrides(overrides),
	}
	if configPath != "" {
		opts = append(opts, confloader.WithConfigFile(configPath))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

type runOptions struct {
	configPath string
	reload     func() (*config.ServerConfig, error)
	logOutput  io.Writer
	// ready, if set, receives the bound RESP address once listening.
	ready chan<- net.Addr
}

// run starts every component and blocks until a shutdown signal arrives or
// ctx is done.
func run(ctx context.Context, cfg *config.ServerConfig, opts runOptions) error {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: opts.logOutput,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogger := log.Slog()

	sanitized := config.Sanitize(cfg)
	slogger.Info("starting respkv-server",
		"version", buildinfo.Version,
		"config", opts.configPath,
		"replicaof", sanitized.Replication.ReplicaOf,
	)

	role, err := cfg.Role()
	if err != nil {
		return err
	}

	metrics := metric.NewRegistry()
	store := memory.New(
		memory.WithShardCount(cfg.Storage.ShardCount),
		memory.WithExpiredHook(metrics.IncExpiredKeys),
	)
	metrics.MustRegister(metric.NewKeyspaceCollector(store))

	st := state.New(store, state.WithRole(role))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sd := shutdown.NewHandler(shutdownTimeout, shutdown.WithLogger(slogger))

	redisSrv := redisserver.New(&redisserver.Config{
		Address:      cfg.Addr(),
		ReadTimeout:  cfg.Server.Redis.ReadTimeout,
		WriteTimeout: cfg.Server.Redis.WriteTimeout,
		IdleTimeout:  cfg.Server.Redis.IdleTimeout,
		RateLimit:    cfg.Server.Redis.RateLimit,
		MaxNesting:   cfg.Server.Redis.MaxNesting,
	}, st, slogger, redisserver.WithMetrics(metrics))
	if err := redisSrv.Start(ctx); err != nil {
		return err
	}
	sd.OnShutdown("redis", redisSrv.Shutdown)
	if tcp, ok := redisSrv.Addr().(*net.TCPAddr); ok {
		st.SetListenPort(tcp.Port)
	}

	if path := cfg.Server.Redis.UnixSocket; path != "" {
		local := localserver.New(path, redisSrv, localserver.WithLogger(slogger))
		if err := local.Listen(); err != nil {
			_ = sd.Shutdown()
			return err
		}
		go func() {
			if err := local.Serve(ctx); err != nil {
				slogger.Error("unix socket listener stopped", "error", err)
			}
		}()
		// Registered after "redis" so it stops first.
		sd.OnShutdown("unix-socket", local.Shutdown)
	}

	if cfg.Server.HTTP.Enabled {
		httpSrv, err := startHTTP(ctx, cfg.Server.HTTP, &httpserver.RouterConfig{
			State:   st,
			Metrics: metrics,
			Conns:   redisSrv,
			Logger:  slogger,
		}, slogger)
		if err != nil {
			_ = sd.Shutdown()
			return err
		}
		sd.OnShutdown("http", httpSrv.Shutdown)
	}

	if role.IsReplica() {
		sd.OnShutdown("replication", startReplica(ctx, role.PrimaryAddr, st.ListenPort(), metrics, slogger))
	}

	if opts.configPath != "" && opts.reload != nil {
		w, err := watchConfig(opts.configPath, opts.reload, slogger)
		if err != nil {
			slogger.Warn("configuration watcher disabled", "error", err)
		} else {
			sd.OnShutdown("config-watcher", func(context.Context) error { return w.Stop() })
		}
	}

	if opts.ready != nil {
		opts.ready <- redisSrv.Addr()
	}

	slogger.Info("server started", "role", role.String())
	if err := sd.Wait(ctx); err != nil {
		slogger.Error("shutdown error", "error", err)
		return err
	}

	slogger.Info("server stopped gracefully")
	return nil
}

// startHTTP binds the admin endpoint and serves it in the background.
func startHTTP(ctx context.Context, cfg config.HTTPConfig, router *httpserver.RouterConfig, log *slog.Logger) (*httpserver.Server, error) {
	var opts []httpserver.Option
	if cfg.TLSEnabled() {
		certs, err := tlscert.NewReloader(cfg.TLSCertFile, cfg.TLSKeyFile, tlscert.WithLogger(log))
		if err != nil {
			return nil, err
		}
		go func() {
			if err := certs.Run(ctx); err != nil {
				log.Error("certificate watcher stopped", "error", err)
			}
		}()
		opts = append(opts, httpserver.WithTLSConfig(certs.TLSConfig()))
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	srv := httpserver.New(cfg.Addr, httpserver.NewRouter(router), opts...)
	go func() {
		log.Info("HTTP server listening", "addr", ln.Addr().String(), "tls", cfg.TLSEnabled())
		if err := srv.Serve(ln); err != nil {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return srv, nil
}

// startReplica runs the replica link in the background. The returned hook
// stops it. A failed link is logged; the server keeps serving clients.
func startReplica(ctx context.Context, primaryAddr string, listenPort int, metrics *metric.Registry, log *slog.Logger) shutdown.Hook {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	replica := replication.NewReplica(primaryAddr, listenPort,
		replication.WithLogger(log),
		replication.WithMetrics(metrics),
	)
	go func() {
		defer close(done)
		if err := replica.Run(ctx); err != nil {
			log.Error("replication link failed", "primary", primaryAddr, "error", err)
		}
	}()

	return func(hookCtx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-hookCtx.Done():
			return hookCtx.Err()
		}
	}
}

// watchConfig applies log.level changes from the configuration file.
func watchConfig(path string, reload func() (*config.ServerConfig, error), log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		applyLogLevel(reload, log)
	})
	w.StartAsync()

	return w, nil
}

func applyLogLevel(reload func() (*config.ServerConfig, error), log *slog.Logger) {
	cfg, err := reload()
	if err != nil {
		log.Warn("configuration reload rejected", "error", err)
		return
	}
	if strings.EqualFold(cfg.Log.Level, logger.GetLevel()) {
		return
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		log.Warn("log level not applied", "error", err)
		return
	}
	log.Info("log level updated", "level", cfg.Log.Level)
}
