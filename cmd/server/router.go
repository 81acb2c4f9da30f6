package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yourusername/authfence/api"
	"github.com/yourusername/authfence/metrics"
	"github.com/yourusername/authfence/middleware"
	"github.com/yourusername/authfence/pkg/authfence"
)

const serviceName = "authfence"

// routerDeps are the collaborators the HTTP routes need
type routerDeps struct {
	limiter   *authfence.Limiter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	storeName string
	ping      func(context.Context) error // nil for stores that cannot fail
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(chimw.Recoverer)

	handler := api.NewHandler(deps.limiter, deps.metrics, deps.logger)
	metricsHandler := api.NewMetricsHandler(deps.metrics)

	r.Get("/health", healthHandler(deps))
	r.Post("/check", handler.CheckRateLimit)
	r.Get("/metrics", metricsHandler.ServeHTTP)
	r.Get("/dashboard", dashboardHandler)

	// Forward-auth endpoints: a proxy sends the original request headers and
	// lets the request through on 204.
	r.Route("/guard", func(r chi.Router) {
		for _, purpose := range deps.limiter.Purposes() {
			guarded := r.With(middleware.RateLimit(middleware.RateLimitConfig{
				Limiter: deps.limiter,
				Purpose: purpose,
				Logger:  deps.logger,
				Metrics: deps.metrics,
			}))
			guarded.Get("/"+purpose, noContent)
			guarded.Post("/"+purpose, noContent)
		}
	})

	return r
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Store   string `json:"store"`
	Error   string `json:"error,omitempty"`
}

func healthHandler(deps routerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:  "healthy",
			Service: serviceName,
			Store:   deps.storeName,
		}
		status := http.StatusOK

		if deps.ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.ping(ctx); err != nil {
				deps.logger.Warn("health check failed", zap.Error(err))
				resp.Status = "unhealthy"
				resp.Error = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
