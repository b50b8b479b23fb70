package http

import (
	"net/http"
	"walletpnl/internal/api/http/handlers"
	"walletpnl/internal/api/http/mw"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Middlewares are optional, a nil one is skipped
type Middlewares struct {
	Log       *mw.LoggingMiddleware
	Gzip      *mw.GzipMiddleware
	RateLimit *mw.RateLimitMiddleware
	CORS      *mw.CORSMiddleware
}

func BuildRouter(h *handlers.Handler, metricsHandler http.Handler, m Middlewares) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if m.Log != nil {
		r.Use(m.Log.Handler)
	}
	r.Use(middleware.Recoverer)

	if m.CORS != nil {
		r.Use(m.CORS.Handler())
	}
	if m.Gzip != nil {
		r.Use(m.Gzip.Handler)
	}

	// tech endpoints, never limited
	r.Get("/healthz", h.Healthz)
	r.Get("/readiness", h.Readiness)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if m.RateLimit != nil {
			api.Use(m.RateLimit.Handler)
		}

		api.Get("/trades/{address}", h.Trades)
		api.Get("/limiters", h.Limiters)
	})

	return r
}
