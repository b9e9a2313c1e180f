package booking

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canchas/canchas-api/internal/middleware"
)

// Routes returns the /bookings router. Every route requires authentication.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/my", h.ListMy)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}/cancel", h.Cancel)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireVenueStaff())
		r.Put("/{id}/status", h.UpdateStatus)
		r.Get("/venue/{venueId}", h.ListByVenue)
		r.Get("/venue/{venueId}/stats", h.VenueStats)
	})

	return r
}

// FieldRoutes registers the public schedule endpoints on the /fields router.
func (h *Handler) FieldRoutes(r chi.Router) {
	r.Post("/{id}/availability", h.CheckAvailability)
	r.Get("/{id}/booked-slots", h.GetBookedSlots)
}
