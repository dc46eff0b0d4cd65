package competitionhandlers

import (
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// RouteOptions configures the competition HTTP API.
type RouteOptions struct {
	AllowedOrigins []string
	// RateLimit is requests per second per client IP; zero disables limiting.
	RateLimit float64
	Burst     int
}

// MountRoutes registers the competition API under /api on r.
func MountRoutes(r chi.Router, h Handlers, opts RouteOptions) {
	r.Route("/api", func(r chi.Router) {
		r.Use(CORSMiddleware(opts.AllowedOrigins))
		if opts.RateLimit > 0 {
			burst := opts.Burst
			if burst <= 0 {
				burst = 1
			}
			r.Use(RateLimitMiddleware(NewClientLimiter(rate.Limit(opts.RateLimit), burst)))
		}

		r.Get("/recipes", h.HandleListRecipes)

		r.Route("/competitions", func(r chi.Router) {
			r.Get("/", h.HandleListCompetitions)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.HandleGetCompetition)
				r.Put("/", h.HandlePutCompetition)
				r.Delete("/", h.HandleDeleteCompetition)

				r.Get("/validation", h.HandleValidation)
				r.Get("/jobs", h.HandleListScheduledJobs)
				r.Post("/import/preview", h.HandlePreviewImport)
				r.Post("/import", h.HandleApplyImport)

				r.Route("/rounds/{round}", func(r chi.Router) {
					r.Post("/assignments", h.HandleGenerateAssignments)
					r.Delete("/assignments", h.HandleResetRound)
					r.Post("/groups", h.HandleCreateGroups)
					r.Post("/schedule", h.HandleScheduleGeneration)
					r.Delete("/schedule", h.HandleCancelScheduledGeneration)
				})
			})
		})
	})
}
