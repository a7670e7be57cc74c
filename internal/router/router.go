// Package router wires the analytics routes and health endpoints onto a chi
// router and applies the middleware chain
// (RequestID → Tracing → RealIP → Recoverer → CORS → Metrics → Timeout).
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/QuickTask-Analytics/pkg/tracing"
)

// New builds the service's HTTP handler.
//
// Route table:
//
//	GET    /                               → liveness banner
//	GET    /stats/user/{user_id}           → completion summary
//	GET    /stats/productivity/{user_id}   → completed-per-day trend (?days=N)
//	GET    /stats/dashboard/{user_id}      → dashboard summary
//	GET    /cache/stats                    → result cache counters
//	POST   /cache/invalidate               → drop cached results
//	GET    /health/live                    → liveness check
//	GET    /health/ready                   → readiness check
//
// m may be nil, in which case request metrics are not recorded.
func New(h *analytics.Handler, checker *health.Checker, cfg *config.Config, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(tracing.Middleware)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))
	if m != nil {
		r.Use(middleware.Metrics(m))
	}
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	h.Register(r)

	r.Get("/health/live", checker.LiveHandler())
	r.Get("/health/ready", checker.ReadyHandler())

	return r
}
