// Package api wires the HTTP surface: the job status API and the ops endpoints.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hszk-dev/hlsladder/internal/api/handler"
	"github.com/hszk-dev/hlsladder/internal/api/middleware"
)

// RouterConfig selects what the router serves.
type RouterConfig struct {
	Logger *slog.Logger
	// Jobs serves /v1 when set. The worker's ops server leaves it nil.
	Jobs *handler.JobHandler
	// Health lists the dependencies pinged by /health.
	Health map[string]handler.Pinger
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if cfg.Jobs != nil {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/jobs/{id}", cfg.Jobs.Get)
			r.Get("/owners/{ownerKey}/jobs", cfg.Jobs.ListByOwner)
		})
	}

	return r
}
