/*
server.go - HTTP router and middleware configuration

ROUTER: chi

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Secure:     Security headers (unrolled/secure)
  5. CORS:       Cross-origin requests for the frontend
  6. RateLimit:  Per-IP request budget (httprate)

ROUTE GROUPS:
  /api/settings     Settings
  /api/entries      Leave entries
  /api/overrides    Monthly overrides
  /api/projection   Projected rows
  /api/export       Snapshot download
  /api/import       Snapshot upload
  /api/holidays     Public holiday lookup
  /api/scenarios    Sample data sets

SECURITY NOTE:
  No authentication. The planner serves a single user on a trusted host.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// RouterOptions configure cross-cutting middleware.
type RouterOptions struct {
	AllowedOrigins     []string
	RateLimitPerMinute int // 0 disables rate limiting
	Production         bool
}

// DefaultRouterOptions suit local development.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		AllowedOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
		RateLimitPerMinute: 300,
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		IsDevelopment:      !opts.Production,
	}).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))
	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/", h.UpdateSettings)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})

		r.Route("/overrides", func(r chi.Router) {
			r.Get("/", h.ListOverrides)
			r.Put("/{month}", h.SetOverride)
			r.Delete("/{month}", h.DeleteOverride)
		})

		r.Route("/projection", func(r chi.Router) {
			r.Get("/", h.GetProjection)
			r.Get("/years", h.GetFinancialYears)
		})

		r.Get("/export", h.Export)
		r.Post("/import", h.Import)
		r.Get("/holidays/{year}", h.GetHolidays)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
