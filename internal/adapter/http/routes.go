package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tbellamy/maestro/internal/middleware"
)

// MountRoutes registers the orchestration API on the given chi router.
// The execute endpoint picks up rate limiting and idempotency replay when
// the Handlers carry them.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Get("/capabilities", h.Capabilities)

		execute := chi.Router(r)
		if h.RateLimiter != nil {
			execute = execute.With(h.RateLimiter.Handler)
		}
		if h.IdempotencyKV != nil {
			execute = execute.With(middleware.Idempotency(h.IdempotencyKV))
		}
		execute.Post("/execute", h.Execute)
	})
}
