package booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/canchas/canchas-api/internal/middleware"
	"github.com/canchas/canchas-api/internal/pkg/errorhandler"
	"github.com/canchas/canchas-api/internal/pkg/response"
	"github.com/canchas/canchas-api/internal/pkg/validator"
)

const defaultStatsWindowDays = 30

// Handler handles booking HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates booking handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func actorFrom(r *http.Request) Actor {
	return Actor{
		UserID: middleware.GetUserID(r.Context()),
		Role:   middleware.GetRole(r.Context()),
	}
}

// CheckAvailability handles POST /api/v1/fields/{id}/availability
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	fieldID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid field ID")
		return
	}

	var req AvailabilityRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidationError(r.Context(), w, errs)
		return
	}

	date, iv, err := parseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	available, err := h.service.CheckAvailability(r.Context(), fieldID, date, iv)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, AvailabilityResponse{Available: available, Date: date, Slot: iv})
}

// GetBookedSlots handles GET /api/v1/fields/{id}/booked-slots?date=YYYY-MM-DD
func (h *Handler) GetBookedSlots(w http.ResponseWriter, r *http.Request) {
	fieldID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid field ID")
		return
	}

	date, err := ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		response.BadRequest(w, "Query parameter date is required (YYYY-MM-DD)")
		return
	}

	slots, err := h.service.GetBookedSlots(r.Context(), fieldID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, BookedSlotsResponse{FieldID: fieldID, Date: date, Slots: slots})
}

// Create handles POST /api/v1/bookings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "User not authenticated")
		return
	}

	var req CreateBookingRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidationError(r.Context(), w, errs)
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	b, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Created(w, b)
}

// ListMy handles GET /api/v1/bookings/my
func (h *Handler) ListMy(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListMyBookings(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, bookings)
}

// GetByID handles GET /api/v1/bookings/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	b, err := h.service.GetBooking(r.Context(), id, actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, b)
}

// Cancel handles PUT /api/v1/bookings/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	b, err := h.service.Cancel(r.Context(), id, actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, b)
}

// UpdateStatus handles PUT /api/v1/bookings/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	var req UpdateStatusRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidationError(r.Context(), w, errs)
		return
	}

	b, err := h.service.UpdateStatus(r.Context(), id, Status(req.Status), actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, b)
}

// ListByVenue handles GET /api/v1/bookings/venue/{venueId}
func (h *Handler) ListByVenue(w http.ResponseWriter, r *http.Request) {
	venueID, err := uuid.Parse(chi.URLParam(r, "venueId"))
	if err != nil {
		response.BadRequest(w, "Invalid venue ID")
		return
	}

	bookings, err := h.service.ListVenueBookings(r.Context(), venueID, actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, bookings)
}

// VenueStats handles GET /api/v1/bookings/venue/{venueId}/stats?start_date=&end_date=
// The range defaults to the last 30 days.
func (h *Handler) VenueStats(w http.ResponseWriter, r *http.Request) {
	venueID, err := uuid.Parse(chi.URLParam(r, "venueId"))
	if err != nil {
		response.BadRequest(w, "Invalid venue ID")
		return
	}

	today := DateOf(time.Now().In(h.service.loc))
	from := today.AddDays(-defaultStatsWindowDays)
	to := today

	q := r.URL.Query()
	if s := q.Get("start_date"); s != "" {
		if from, err = ParseDate(s); err != nil {
			response.BadRequest(w, "Invalid start_date (YYYY-MM-DD)")
			return
		}
	}
	if s := q.Get("end_date"); s != "" {
		if to, err = ParseDate(s); err != nil {
			response.BadRequest(w, "Invalid end_date (YYYY-MM-DD)")
			return
		}
	}

	if err := h.service.AuthorizeVenue(r.Context(), venueID, actorFrom(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	stats, err := h.service.GetVenueStats(r.Context(), venueID, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, stats)
}

func parseSlot(date, start, end string) (Date, Interval, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Date{}, Interval{}, err
	}
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Date{}, Interval{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Date{}, Interval{}, err
	}
	return d, Interval{Start: s, End: e}, nil
}

// writeError maps error kinds to HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, ErrNotFound):
		errorhandler.HandleError(ctx, w, http.StatusNotFound, "NOT_FOUND", err.Error(), err)
	case errors.Is(err, ErrForbidden):
		errorhandler.HandleError(ctx, w, http.StatusForbidden, "FORBIDDEN", "Not allowed to access this booking", err)
	case errors.Is(err, ErrConflict):
		errorhandler.HandleError(ctx, w, http.StatusConflict, "SLOT_UNAVAILABLE", err.Error(), err)
	case errors.Is(err, ErrInvalidState):
		errorhandler.HandleError(ctx, w, http.StatusConflict, "INVALID_STATE", err.Error(), err)
	case errors.Is(err, ErrInvalidInterval):
		errorhandler.HandleError(ctx, w, http.StatusBadRequest, "INVALID_INTERVAL", err.Error(), err)
	default:
		errorhandler.HandleError(ctx, w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", err)
	}
}
