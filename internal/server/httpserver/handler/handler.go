package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/respkv-go/internal/core/state"
	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
	"github.com/yndnr/respkv-go/internal/telemetry/logger"
)

// ConnCounter reports the number of open client connections.
type ConnCounter interface {
	ConnCount() int
}

// Handler routes the JSON endpoints.
type Handler struct {
	state  *state.State
	conns  ConnCounter
	build  buildinfo.Info
	logger *slog.Logger
	mux    *http.ServeMux
	now    func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithConnCounter reports open client connections in /info.
func WithConnCounter(c ConnCounter) Option {
	return func(h *Handler) {
		h.conns = c
	}
}

// WithBuildInfo overrides the build information reported by /info.
func WithBuildInfo(info buildinfo.Info) Option {
	return func(h *Handler) {
		h.build = info
	}
}

// New creates a Handler reading from st.
func New(st *state.State, log *slog.Logger, opts ...Option) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		state:  st,
		build:  buildinfo.Get(),
		logger: log,
		mux:    http.NewServeMux(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /info", h.handleInfo)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// getRequestID returns the id attached by the RequestID middleware, falling
// back to the request header.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}
