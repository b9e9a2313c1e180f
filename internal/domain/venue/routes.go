package venue

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canchas/canchas-api/internal/middleware"
)

// Routes returns the /venues router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireVenueStaff())
		r.Get("/my", h.ListMine)
		r.Post("/", h.CreateVenue)
		r.Put("/{id}", h.UpdateVenue)
		r.Delete("/{id}", h.DeleteVenue)
	})

	return r
}

// FieldRoutes registers field catalog endpoints on the /fields router
func (h *Handler) FieldRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/venue/{venueId}", h.ListFields)
	r.Get("/{id}", h.GetField)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireVenueStaff())
		r.Post("/", h.CreateField)
		r.Put("/{id}", h.UpdateField)
		r.Delete("/{id}", h.DeleteField)
	})
}
