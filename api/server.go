/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logger:     zap request log carrying the request id
  4. Metrics:    Prometheus request counter and latency by route pattern
  5. Recoverer:  Panic recovery (500 instead of crash)
  6. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/calculations/*   Pure calculations
  /api/distributions/*  Distribution lifecycle
  /api/wells/*          Per-well listings and division-order checks
  /api/division-orders  Division-order maintenance
  /api/scenarios/*      Demo scenarios
  /healthz              Liveness
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/revenue-engine/observability/logger"
	"github.com/warp/revenue-engine/observability/metrics"
	"go.uber.org/zap"
)

// RouterOptions carries the ambient dependencies of the router. Zero values
// disable the corresponding middleware.
type RouterOptions struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(logger.Middleware(opts.Logger))
	}
	if opts.Metrics != nil {
		r.Use(metricsMiddleware(opts.Metrics))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/calculations", func(r chi.Router) {
			r.Post("/payment", h.CalculatePayment)
			r.Post("/price", h.CalculatePrice)
			r.Post("/breakdown", h.CalculateBreakdown)
		})

		r.Route("/distributions", func(r chi.Router) {
			r.Post("/", h.CreateDistribution)
			r.Get("/{id}", h.GetDistribution)
			r.Get("/{id}/events", h.GetDistributionEvents)
			r.Post("/{id}/recalculate", h.RecalculateDistribution)
			r.Post("/{id}/pay", h.PayDistribution)
		})

		r.Route("/wells", func(r chi.Router) {
			r.Get("/{id}/distributions", h.ListWellDistributions)
			r.Get("/{id}/division-order", h.ValidateDivisionOrder)
		})

		r.Route("/division-orders", func(r chi.Router) {
			r.Post("/", h.RecordInterest)
			r.Post("/audit", h.AuditDivisionOrders)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// metricsMiddleware records per-route counters. The route pattern is read
// after the handler ran, when chi has resolved it.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(logger.RoutePattern(r), r.Method, status, time.Since(start))
		})
	}
}
