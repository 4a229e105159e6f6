/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the desk frontend

SECURITY NOTE:
  No authentication middleware currently. The deployment sits behind
  the operator network; the engine only needs "a user is present".

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", h.ListVendors)
			r.Put("/{key}", h.UpsertVendor)
			r.Delete("/{key}", h.RemoveVendor)
			r.Get("/{key}/next-code", h.NextCode)
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.CommitReservation)
			r.Get("/{code}", h.GetReservation)
			r.Put("/{code}", h.ModifyReservation)
			r.Delete("/{code}", h.VoidReservation)
		})

		r.Post("/payments", h.AddPayment)

		r.Get("/retired", h.ListRetired)
		r.Post("/codes/{code}/retire", h.RetireCode)
		r.Get("/groups/next", h.NextGroup)

		r.Get("/day-sheet", h.DaySheet)
		r.Put("/day-sheet/comment", h.SetDayComment)
		r.Get("/months/{month}", h.MonthSummary)
		r.Get("/history", h.History)
		r.Get("/prefs", h.GetPreferences)
		r.Put("/prefs", h.SetPreferences)

		r.Get("/config", h.GetConfig)
		r.Put("/config", h.SetConfig)
		r.Post("/refresh", h.Refresh)
	})

	return r
}
