package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/respkv-go/internal/core/state"
	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
	"github.com/yndnr/respkv-go/internal/server/httpserver/handler"
	"github.com/yndnr/respkv-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// State is reported by /info.
	State *state.State

	// Metrics is exposed on /metrics. Nil serves the global registry.
	Metrics *metric.Registry

	// Conns reports open client connections in /info. Optional.
	Conns handler.ConnCounter

	// Build overrides the reported build information. Optional.
	Build *buildinfo.Info

	// Logger for request logging.
	Logger *slog.Logger
}

// NewRouter creates the admin router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var opts []handler.Option
	if cfg.Conns != nil {
		opts = append(opts, handler.WithConnCounter(cfg.Conns))
	}
	if cfg.Build != nil {
		opts = append(opts, handler.WithBuildInfo(*cfg.Build))
	}
	h := handler.New(cfg.State, log, opts...)

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = metric.Global()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/", h)

	return Chain(mux,
		RequestID(),
		Recover(log),
		Audit(log),
	)
}
