// Package httptransport assembles the devguard HTTP server.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/devguard/internal/config"
	"example.com/devguard/internal/transport/middleware"
)

// RouteRegistrar mounts handlers on a mux. *api.Handler satisfies it.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// NewRouter mounts the API routes and /metrics behind the standard middleware
// chain: request id, panic recovery, access log and CORS.
func NewRouter(routes RouteRegistrar, cfg config.HTTPConfig, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	routes.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.Chain(
		middleware.RequestID,
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.CORS(cfg.CORSOrigins),
	)(mux)
}

// NewServer creates *http.Server with provided handler.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
