package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Handlers bundles everything the router exposes
type Handlers struct {
	Health  *HealthHandler
	Search  *SearchHandler
	Display *DisplayHandler
	Icon    *IconHandler
}

// NewRouter wires the HTTP surface
func NewRouter(h Handlers, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stops/search", h.Search.Search)
		r.Get("/stops/autocomplete", h.Search.Autocomplete)
		r.Post("/stops/{code}/display", h.Display.CreateDisplay)
		r.Post("/display/{id}/action", h.Display.Action)
		r.Get("/routes/{routeNo}/icon.png", h.Icon.RouteIcon)
	})

	return r
}
