package cmd

import (
	"net/http"

	"stanfood-backend/internal/config"
	"stanfood-backend/internal/handlers"
	"stanfood-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// routeHandlers groups the HTTP handlers mounted by newRouter
type routeHandlers struct {
	sweep         *handlers.SweepHandler
	events        *handlers.EventHandler
	notifications *handlers.NotificationHandler
	health        *handlers.HealthHandler
}

// newRouter builds the chi router with middleware and routes
func newRouter(cfg *config.Config, h routeHandlers) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}).Handler)

	r.Get("/health", h.health.Health)
	r.Get("/getNumEvents", h.events.GetNumEvents)

	// Trigger routes start work on the server and are rate limited
	r.Group(func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			r.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
		}
		r.Get("/checkPinEvents", h.sweep.CheckPinEvents)
		r.Post("/checkPinEvents", h.sweep.CheckPinEvents)
		r.Post("/api/v1/events/{event_id}/notifications", h.notifications.NotifyEvent)
	})

	return r
}
