package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playsquare/reviewdesk/internal/domain/user"
	"github.com/playsquare/reviewdesk/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. The auth
// endpoints sit behind the given rate limiter; everything else relies on the
// Auth middleware installed at the router level.
func MountRoutes(r chi.Router, h *Handlers, limiter *middleware.RateLimiter) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Auth (register/login/refresh are public via middleware exemption
		// and rate limited per IP)
		r.Route("/auth", func(r chi.Router) {
			r.With(limiter.Handler).Post("/register", h.Register)
			r.With(limiter.Handler).Post("/login", h.Login)
			r.With(limiter.Handler).Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.GetCurrentUser)
		})

		// Events
		r.Get("/events", h.ListEvents)
		r.With(middleware.RequireRole(user.RoleAdmin, user.RolePlanner)).
			Post("/events", h.CreateEvent)
		r.Get("/events/{id}", h.GetEvent)
		r.With(middleware.RequireRole(user.RoleAdmin, user.RolePlanner)).
			Patch("/events/{id}", h.UpdateEvent)
		r.With(middleware.RequireRole(user.RoleAdmin, user.RolePlanner)).
			Delete("/events/{id}", h.DeleteEvent)

		// Reviewer assignment
		r.With(middleware.RequireRole(user.RoleAdmin, user.RolePlanner)).
			Patch("/events/{id}/reviewers", h.ReassignReviewers)

		// Review decisions and snapshots
		r.With(middleware.RequireRole(user.RoleAdmin, user.RoleReviewer)).
			Patch("/events/{id}/review/status", h.RecordDecision)
		r.Get("/events/{id}/review/status", h.GetReviewStatus)
		r.Get("/events/{id}/review/history", h.GetReviewHistory)
	})
}
