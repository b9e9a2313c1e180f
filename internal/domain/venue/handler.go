package venue

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/canchas/canchas-api/internal/middleware"
	"github.com/canchas/canchas-api/internal/pkg/errorhandler"
	"github.com/canchas/canchas-api/internal/pkg/response"
	"github.com/canchas/canchas-api/internal/pkg/validator"
)

// Handler handles venue and field HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates venue handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /api/v1/venues?search=&sport_type=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	venues, err := h.service.List(r.Context(), ListFilter{
		Search:    q.Get("search"),
		SportType: q.Get("sport_type"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, venues)
}

// ListMine handles GET /api/v1/venues/my
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	venues, err := h.service.ListMine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, venues)
}

// Get handles GET /api/v1/venues/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid venue ID")
		return
	}

	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, v)
}

// CreateVenue handles POST /api/v1/venues
func (h *Handler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var req CreateVenueRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidationError(r.Context(), w, errs)
		return
	}

	ctx := r.Context()
	v, err := h.service.CreateVenue(ctx, middleware.GetUserID(ctx), middleware.GetRole(ctx), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, v)
}

// UpdateVenue handles PUT /api/v1/venues/{id}
func (h *Handler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid venue ID")
		return
	}

	var req UpdateVenueRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidationError(r.Context(), w, errs)
		return
	}

	ctx := r.Context()
	v, err := h.service.UpdateVenue(ctx, id, middleware.GetUserID(ctx), middleware.GetRole(ctx), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, v)
}

// DeleteVenue handles DELETE /api/v1/venues/{id}
func (h *Handler) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid venue ID")
		return
	}

	ctx := r.Context()
	if err := h.service.DeleteVenue(ctx, id, middleware.GetUserID(ctx), middleware.GetRole(ctx)); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "deleted"})
}

// ListFields handles GET /api/v1/fields/venue/{venueId}
func (h *Handler) ListFields(w http.ResponseWriter, r *http.Request) {
	venueID, err := uuid.Parse(chi.URLParam(r, "venueId"))
	if err != nil {
		response.BadRequest(w, "Invalid venue ID")
		return
	}

	fields, err := h.service.ListFields(r.Context(), venueID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, fields)
}

// GetField handles GET /api/v1/fields/{id}
func (h *Handler) GetField(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid field ID")
		return
	}

	f, err := h.service.GetField(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, f)
}

// CreateField handles POST /api/v1/fields
func (h *Handler) CreateField(w http.ResponseWriter, r *http.Request) {
	var req CreateFieldRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidationError(r.Context(), w, errs)
		return
	}

	ctx := r.Context()
	f, err := h.service.CreateField(ctx, middleware.GetUserID(ctx), middleware.GetRole(ctx), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, f)
}

// UpdateField handles PUT /api/v1/fields/{id}
func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid field ID")
		return
	}

	var req UpdateFieldRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidationError(r.Context(), w, errs)
		return
	}

	ctx := r.Context()
	f, err := h.service.UpdateField(ctx, id, middleware.GetUserID(ctx), middleware.GetRole(ctx), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, f)
}

// DeleteField handles DELETE /api/v1/fields/{id}
func (h *Handler) DeleteField(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid field ID")
		return
	}

	ctx := r.Context()
	if err := h.service.DeleteField(ctx, id, middleware.GetUserID(ctx), middleware.GetRole(ctx)); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "deleted"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrVenueNotFound), errors.Is(err, ErrFieldNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotVenueOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrOwnerNotFound):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrVenueHasFields), errors.Is(err, ErrFieldHasBookings):
		response.Conflict(w, err.Error())
	default:
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", err)
	}
}
