// Package httpapi implements the request contracts of SPEC_FULL.md §6/§6A
// over chi, wiring the admission layer's middleware around the engine.
package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/occsearch/engine/internal/admission"
	"github.com/occsearch/engine/internal/engine"
)

// Deps is everything the router needs to build its handlers.
type Deps struct {
	Engine           *engine.Engine
	CORSOrigins      []string
	AdminToken       string
	RateLimitSearch  int
	RateLimitAdmin   int
	AllowTestRateKey bool
}

// NewRouter builds the full chi router: security headers, request ID,
// recoverer, CORS, size limits, rate limiting, and the route table.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(admission.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "X-Admin-Token", "X-Rate-Key"},
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(30 * time.Second))

	clientKey := admission.DefaultClientKey
	if d.AllowTestRateKey {
		clientKey = admission.TestOverrideClientKey
	}
	searchLimiter := admission.NewLimiter(d.RateLimitSearch)
	adminLimiter := admission.NewLimiter(d.RateLimitAdmin)

	h := &handlers{engine: d.Engine}

	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(admission.MaxBodySize(10 * 1024))
		r.Use(admission.RateLimit(searchLimiter, clientKey))
		r.Post("/search", h.search)
		r.Post("/feedback", h.feedback)
		r.Get("/occupation/{code}", h.occupation)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(admission.MaxBodySize(10 * 1024))
		r.Use(admission.RateLimit(adminLimiter, clientKey))
		r.Use(admission.AdminGate(d.AdminToken))
		r.Post("/update-synonyms", h.updateSynonyms)
		r.Post("/reindex", h.reindex)
		r.Get("/logs", h.readLogs)
		r.Delete("/logs", h.deleteLogs)
		r.Get("/stats", h.stats)
	})

	return r
}
